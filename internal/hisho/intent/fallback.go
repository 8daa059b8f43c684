package intent

import (
	"regexp"
	"strings"
)

// RephraseMessage is the Fallback reply when no keyword set matches.
const RephraseMessage = "I understand you need help, but I'm not sure what you're asking for. " +
	"Could you please be more specific? For example:\n" +
	"• 'Show my calendar'\n" +
	"• 'Schedule a meeting tomorrow at 2pm'\n" +
	"• 'Check my emails'"

func words(ws ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + strings.Join(ws, "|") + `)\b`)
}

var (
	fbCalendarView  = words("calendar", "agenda", "today", "tomorrow", "yesterday", "events", "my day", "this week", "what's on")
	fbMutation      = words("create", "add", "schedule", "book", "set up", "delete", "cancel", "remove", "move", "reschedule", "send", "write")
	fbCalendarNoun  = words("calendar", "meeting", "meetings", "event", "events", "appointment", "appointments", "call", "standup")
	fbCreate        = words("create", "add", "schedule", "book", "set up", "plan")
	fbDelete        = words("delete", "cancel", "remove", "trash", "drop")
	fbMove          = words("move", "reschedule", "postpone", "push")
	fbMailNoun      = words("email", "emails", "e-mail", "mail", "inbox", "gmail", "message", "messages")
	fbSend          = words("send", "write", "compose", "email")
	fbContactNoun   = words("contact", "contacts", "phone number", "address book")
	fbFind          = words("find", "search", "look up", "lookup", "where", "what's", "who")
	fbList          = words("list", "show", "all", "view", "check", "read", "get")
	fbDriveNoun     = words("file", "files", "folder", "document", "documents", "drive", "doc", "docs")
	fbTaskNoun      = words("task", "tasks", "todo", "todos", "to-do")
	fbComplete      = words("complete", "done", "finish", "finished", "tick off", "check off")
	moveTargetRe    = regexp.MustCompile(`(?i)\bto (.+)$`)
	folderNameRe    = regexp.MustCompile(`(?i)\bfolder (?:named |called )?["']?([^"']+?)["']?$`)
	searchSubjectRe = regexp.MustCompile(`(?i)\b(?:find|search(?: for)?|look up|lookup)\s+(?:for\s+)?(?:the\s+|my\s+)?(?:contact\s+|file\s+)?(.+?)(?:'s (?:number|email|phone|contact))?[?.!]*$`)
)

// Fallback classifies an utterance by keyword sets when the model cannot be
// used. It returns at most one action. The calendar view check comes first
// because "show me my day" is the dominant recovery case; then per-service
// create, delete and update variants in a fixed order. When nothing matches
// the result carries RephraseMessage and no actions.
func Fallback(utterance string, enabled ServiceSet) TranslationResult {
	norm := normalize(utterance)
	raw := strings.TrimSpace(utterance)
	for _, c := range fallbackChain {
		if !enabled.Has(c.service) {
			continue
		}
		if res, ok := c.classify(norm, raw); ok {
			res.Source = SourceFallback
			return res
		}
	}
	return TranslationResult{Text: RephraseMessage, Source: SourceFallback}
}

type classifier struct {
	service  Service
	classify func(norm, raw string) (TranslationResult, bool)
}

var fallbackChain = []classifier{
	{Calendar, fallbackCalendarView},
	{Calendar, fallbackCalendarCreate},
	{Calendar, fallbackCalendarDelete},
	{Calendar, fallbackCalendarMove},
	{Mail, fallbackMail},
	{Tasks, fallbackTasks},
	{Contacts, fallbackContacts},
	{Drive, fallbackDrive},
}

func single(text string, a ActionRequest) (TranslationResult, bool) {
	return TranslationResult{Text: text, Actions: []ActionRequest{a}}, true
}

func fallbackCalendarView(norm, _ string) (TranslationResult, bool) {
	if !fbCalendarView.MatchString(norm) || fbMutation.MatchString(norm) {
		return TranslationResult{}, false
	}
	if fbMailNoun.MatchString(norm) || fbTaskNoun.MatchString(norm) {
		return TranslationResult{}, false
	}
	return viewEvents(DetectRange(norm)), true
}

func fallbackCalendarCreate(norm, raw string) (TranslationResult, bool) {
	if !fbCalendarNoun.MatchString(norm) || !fbCreate.MatchString(norm) {
		return TranslationResult{}, false
	}
	return single("I'll help you schedule that.",
		ActionRequest{Service: Calendar, Action: "CREATE_EVENT", Parameters: ExtractEventInfo(raw)})
}

func fallbackCalendarDelete(norm, raw string) (TranslationResult, bool) {
	if !fbCalendarNoun.MatchString(norm) || !fbDelete.MatchString(norm) || fbMailNoun.MatchString(norm) {
		return TranslationResult{}, false
	}
	return single("I'll cancel that for you.",
		ActionRequest{Service: Calendar, Action: "DELETE_EVENT", Parameters: ExtractEventReference(raw)})
}

func fallbackCalendarMove(norm, raw string) (TranslationResult, bool) {
	if !fbCalendarNoun.MatchString(norm) || !fbMove.MatchString(norm) {
		return TranslationResult{}, false
	}
	before, target := raw, ""
	if loc := moveTargetRe.FindStringSubmatchIndex(raw); loc != nil {
		before, target = raw[:loc[0]], raw[loc[2]:loc[3]]
	}
	a := ActionRequest{Service: Calendar, Action: "MOVE_EVENT", Parameters: ExtractEventReference(before)}
	if target != "" {
		info := ExtractEventInfo(target)
		setDefault(a, "date", info["date"])
		setDefault(a, "time", info["time"])
	}
	return single("I'll move that for you.", a)
}

func fallbackMail(norm, raw string) (TranslationResult, bool) {
	if !fbMailNoun.MatchString(norm) {
		return TranslationResult{}, false
	}
	switch {
	case fbDelete.MatchString(norm):
		return single("I'll look for those emails.", NewAction(Mail, "DELETE_EMAIL"))
	case fbSend.MatchString(norm) && !fbList.MatchString(norm):
		a := NewAction(Mail, "SEND_EMAIL")
		setDefault(a, "to", FirstEmailAddress(raw))
		return single("Let's write that email.", a)
	default:
		return single("Let me check your emails.", NewAction(Mail, "LIST_UNREAD"))
	}
}

func fallbackTasks(norm, raw string) (TranslationResult, bool) {
	if !fbTaskNoun.MatchString(norm) {
		return TranslationResult{}, false
	}
	switch {
	case fbCreate.MatchString(norm) || strings.Contains(norm, "new "):
		a := NewAction(Tasks, "ADD_TASK")
		setDefault(a, "title", ExtractTaskTitle(raw))
		return single("I'll add that task for you.", a)
	case fbComplete.MatchString(norm):
		a := NewAction(Tasks, "COMPLETE_TASK")
		setDefault(a, "title", stripTaskVerb(raw))
		return single("", a)
	case fbDelete.MatchString(norm):
		a := NewAction(Tasks, "DELETE_TASK")
		setDefault(a, "title", stripTaskVerb(raw))
		return single("", a)
	default:
		return single("", NewAction(Tasks, "LIST_TASKS", "filter", "pending"))
	}
}

var taskVerbRe = regexp.MustCompile(`(?i)\b(?:complete|completed|done|finish|finished|mark|as|tick off|check off|delete|remove|cancel|the|my|task|tasks|todo)\b`)

func stripTaskVerb(raw string) string {
	s := taskVerbRe.ReplaceAllString(raw, " ")
	return strings.Trim(strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " ")), " .!?")
}

func fallbackContacts(norm, raw string) (TranslationResult, bool) {
	if !fbContactNoun.MatchString(norm) {
		return TranslationResult{}, false
	}
	switch {
	case fbCreate.MatchString(norm):
		a := NewAction(Contacts, "ADD_CONTACT")
		setDefault(a, "email", FirstEmailAddress(raw))
		return single("", a)
	case fbFind.MatchString(norm):
		a := NewAction(Contacts, "FIND_CONTACT")
		if m := searchSubjectRe.FindStringSubmatch(raw); m != nil {
			setDefault(a, "query", strings.TrimSpace(m[1]))
		}
		return single("", a)
	default:
		return single("", NewAction(Contacts, "LIST_CONTACTS"))
	}
}

func fallbackDrive(norm, raw string) (TranslationResult, bool) {
	if !fbDriveNoun.MatchString(norm) {
		return TranslationResult{}, false
	}
	switch {
	case fbCreate.MatchString(norm) && strings.Contains(norm, "folder"):
		a := NewAction(Drive, "CREATE_FOLDER")
		if m := folderNameRe.FindStringSubmatch(raw); m != nil {
			setDefault(a, "name", strings.TrimSpace(m[1]))
		}
		return single("", a)
	case fbFind.MatchString(norm):
		a := NewAction(Drive, "SEARCH_FILES")
		if m := searchSubjectRe.FindStringSubmatch(raw); m != nil {
			setDefault(a, "query", strings.TrimSpace(m[1]))
		}
		return single("", a)
	default:
		return single("", NewAction(Drive, "LIST_RECENT"))
	}
}
