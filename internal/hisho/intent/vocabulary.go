package intent

// Verb describes one action a collaborator accepts.
type Verb struct {
	Name    string
	Summary string
	// Params lists representative parameter names in prompt order.
	Params []string
}

// Example is a worked utterance-to-tags mapping shown to the model.
type Example struct {
	Utterance string
	Reply     string
}

// Vocabulary is the fixed action vocabulary of one service.
type Vocabulary struct {
	Service  Service
	Summary  string
	Verbs    []Verb
	Examples []Example
}

// Has reports whether verb belongs to the vocabulary.
func (v Vocabulary) Has(verb string) bool {
	for _, vb := range v.Verbs {
		if vb.Name == verb {
			return true
		}
	}
	return false
}

// Range tokens accepted by calendar VIEW_EVENTS.
const (
	RangeToday     = "today"
	RangeTomorrow  = "tomorrow"
	RangeYesterday = "yesterday"
	RangeWeek      = "week"
	RangeLastWeek  = "last_week"
	RangeNextWeek  = "next_week"
	RangeMonth     = "month"
	RangeLastMonth = "last_month"
	RangeNextMonth = "next_month"
)

// Ranges is the closed set of VIEW_EVENTS range tokens.
var Ranges = []string{
	RangeToday, RangeTomorrow, RangeYesterday,
	RangeWeek, RangeLastWeek, RangeNextWeek,
	RangeMonth, RangeLastMonth, RangeNextMonth,
}

// Catalogue holds the vocabulary of every service, in AllServices order.
var Catalogue = []Vocabulary{
	{
		Service: Calendar,
		Summary: "the user's calendar (view, create, find, move and delete events)",
		Verbs: []Verb{
			{"VIEW_EVENTS", "show events for a range: today, tomorrow, yesterday, week, last_week, next_week, month, last_month, next_month", []string{"range"}},
			{"CREATE_EVENT", "create an event", []string{"title", "date", "time", "duration", "location", "attendees"}},
			{"BLOCK_TIME", "block focus time", []string{"title", "date", "time", "duration"}},
			{"SEARCH_EVENTS", "search upcoming events by text", []string{"query"}},
			{"DELETE_EVENT", "delete an event found by title", []string{"title"}},
			{"MOVE_EVENT", "move an event to a new date or time", []string{"title", "date", "time"}},
			{"FIND_FREE_TIME", "find free slots of a given length in hours", []string{"date", "duration"}},
		},
		Examples: []Example{
			{"what's on my calendar", `[SERVICE_ACTION: CALENDAR | action: VIEW_EVENTS | range: "today"]`},
			{"anything next week?", `[SERVICE_ACTION: CALENDAR | action: VIEW_EVENTS | range: "next_week"]`},
			{"schedule meeting tomorrow 2pm", "I'll schedule that meeting for you.\n" +
				`[SERVICE_ACTION: CALENDAR | action: CREATE_EVENT | title: "Meeting" | date: "tomorrow" | time: "2pm" | duration: "1 hour"]`},
			{"cancel the dentist appointment", `[SERVICE_ACTION: CALENDAR | action: DELETE_EVENT | title: "dentist"]`},
		},
	},
	{
		Service: Mail,
		Summary: "the user's mailbox (list, search, read, send, reply, delete)",
		Verbs: []Verb{
			{"LIST_UNREAD", "list unread messages", []string{"max_results"}},
			{"SEARCH_EMAILS", "search messages; query supports from:, to:, subject:, is:unread, is:spam, older_than:Nd, category:", []string{"query", "max_results"}},
			{"READ_EMAIL", "open a message found by query", []string{"query"}},
			{"GET_LAST_EMAIL", "show the most recent message", nil},
			{"SEND_EMAIL", "send a new message", []string{"to", "subject", "body"}},
			{"REPLY_EMAIL", "reply to a message found by query", []string{"query", "body"}},
			{"DELETE_EMAIL", "delete messages found by query", []string{"query"}},
			{"MARK_READ", "mark a message as read", []string{"query"}},
			{"MARK_UNREAD", "mark a message as unread", []string{"query"}},
		},
		Examples: []Example{
			{"any new mail?", `[SERVICE_ACTION: MAIL | action: LIST_UNREAD | max_results: "10"]`},
			{"delete the emails from newsletter@example.com", `[SERVICE_ACTION: MAIL | action: DELETE_EMAIL | query: "from:newsletter@example.com"]`},
			{"email bob@example.com about lunch", `[SERVICE_ACTION: MAIL | action: SEND_EMAIL | to: "bob@example.com" | subject: "Lunch"]`},
		},
	},
	{
		Service: Contacts,
		Summary: "the user's address book",
		Verbs: []Verb{
			{"FIND_CONTACT", "find a contact by name, email, phone or company", []string{"query"}},
			{"LIST_CONTACTS", "list all contacts", nil},
			{"ADD_CONTACT", "add a contact", []string{"name", "email", "phone", "company"}},
			{"DELETE_CONTACT", "delete a contact", []string{"query"}},
		},
		Examples: []Example{
			{"what's Jane's number", `[SERVICE_ACTION: CONTACTS | action: FIND_CONTACT | query: "Jane"]`},
		},
	},
	{
		Service: Drive,
		Summary: "the user's file storage",
		Verbs: []Verb{
			{"SEARCH_FILES", "search files by name", []string{"query"}},
			{"LIST_RECENT", "list recently modified files", []string{"max_results"}},
			{"CREATE_FOLDER", "create a folder", []string{"name"}},
			{"RENAME_FILE", "rename a file", []string{"query", "new_name"}},
			{"DELETE_FILE", "delete a file", []string{"query"}},
		},
		Examples: []Example{
			{"create folder Reports", `[SERVICE_ACTION: DRIVE | action: CREATE_FOLDER | name: "Reports"]`},
		},
	},
	{
		Service: Tasks,
		Summary: "the user's task list",
		Verbs: []Verb{
			{"ADD_TASK", "add a task", []string{"title", "due", "notes"}},
			{"LIST_TASKS", "list tasks; filter is pending, completed, today or all", []string{"filter"}},
			{"COMPLETE_TASK", "mark a task as done", []string{"title"}},
			{"DELETE_TASK", "delete a task", []string{"title"}},
		},
		Examples: []Example{
			{"remind me to buy milk tomorrow", `[SERVICE_ACTION: TASKS | action: ADD_TASK | title: "Buy milk" | due: "tomorrow"]`},
		},
	},
}

// Lookup returns the vocabulary for s.
func Lookup(s Service) (Vocabulary, bool) {
	for _, v := range Catalogue {
		if v.Service == s {
			return v, true
		}
	}
	return Vocabulary{}, false
}
