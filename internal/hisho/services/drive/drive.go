// Package drive is the file storage collaborator.
package drive

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/bdobrica/Hisho/internal/hisho/dispatch"
	"github.com/bdobrica/Hisho/internal/hisho/intent"
	"github.com/bdobrica/Hisho/internal/hisho/services/reply"
	"github.com/bdobrica/Hisho/internal/hisho/services/when"
	"github.com/bdobrica/Hisho/internal/hisho/session"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

var schemas = dispatch.MustSchemas(intent.Drive, map[string]string{
	"SEARCH_FILES": dispatch.Object(nil, map[string]string{"query": dispatch.AnyString}),
	"LIST_RECENT":  dispatch.Object(nil, map[string]string{"max_results": dispatch.Digits}),
	"CREATE_FOLDER": dispatch.Object(nil, map[string]string{
		"name": dispatch.AnyString, "parent": dispatch.AnyString,
	}),
	"RENAME_FILE": dispatch.Object(nil, map[string]string{
		"id": dispatch.NonBlank, "query": dispatch.AnyString, "new_name": dispatch.AnyString,
	}),
	"DELETE_FILE": dispatch.Object(nil, map[string]string{
		"id": dispatch.NonBlank, "query": dispatch.AnyString, "confirmed": dispatch.YesNo,
	}),
})

// Service implements dispatch.Collaborator for file storage.
type Service struct {
	ws *workspace.Workspace
}

// New returns the drive collaborator.
func New(ws *workspace.Workspace) *Service {
	return &Service{ws: ws}
}

// Service reports intent.Drive.
func (s *Service) Service() intent.Service { return intent.Drive }

// HandleAction runs one drive verb.
func (s *Service) HandleAction(ctx context.Context, verb string, params map[string]string, sess *session.Session) (dispatch.Outcome, error) {
	if err := schemas.Validate(verb, params); err != nil {
		return dispatch.Outcome{}, err
	}
	a := intent.ActionRequest{Service: intent.Drive, Action: verb, Parameters: params}

	switch verb {
	case "SEARCH_FILES":
		return s.search(ctx, sess, a)
	case "LIST_RECENT":
		return s.recent(ctx, sess, a)
	case "CREATE_FOLDER":
		return s.createFolder(ctx, sess, a)
	case "RENAME_FILE":
		return s.rename(ctx, sess, a)
	case "DELETE_FILE":
		return s.delete(ctx, sess, a)
	}
	return dispatch.Outcome{}, fmt.Errorf("%w: drive.%s", dispatch.ErrUnknownAction, verb)
}

func icon(f workspace.File) string {
	if f.Folder {
		return "📁"
	}
	return "📄"
}

func (s *Service) line(f workspace.File) string {
	if f.Folder {
		return fmt.Sprintf("📁 **%s**", f.Name)
	}
	return fmt.Sprintf("📄 **%s** · %s · %s", f.Name, humanize.Bytes(uint64(max(f.Size, 0))), when.Ago(f.ModifiedAt, s.ws.Now()))
}

func (s *Service) listing(files []workspace.File) string {
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = s.line(f)
	}
	return reply.Numbered(lines)
}

func (s *Service) candidates(files []workspace.File) []session.Candidate {
	out := make([]session.Candidate, len(files))
	for i, f := range files {
		out[i] = session.Candidate{ID: f.ID, Label: fmt.Sprintf("%s %s (%s)", icon(f), f.Name, when.Ago(f.ModifiedAt, s.ws.Now()))}
	}
	return out
}

func (s *Service) search(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	q := strings.TrimSpace(a.Param("query"))
	if q == "" {
		return reply.Ask(sess, a, "query", "🔍 What file are you looking for?")
	}
	files, err := s.ws.SearchFiles(ctx, sess.UserID, q, defaultLimit)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(files) == 0 {
		return dispatch.Done("📭 **No files found for:** %q", q), nil
	}
	sess.SetResults(intent.Drive, s.candidates(files))
	return dispatch.Done("🔍 **Files matching %q** (%d):\n\n%s", q, len(files), s.listing(files)), nil
}

func (s *Service) recent(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	n, err := strconv.Atoi(a.Param("max_results"))
	if err != nil || n <= 0 {
		n = defaultLimit
	}
	files, err := s.ws.RecentFiles(ctx, sess.UserID, min(n, maxLimit))
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if len(files) == 0 {
		return dispatch.Done("📭 **No files yet**"), nil
	}
	sess.SetResults(intent.Drive, s.candidates(files))
	return dispatch.Done("🕒 **Recent files** (%d):\n\n%s", len(files), s.listing(files)), nil
}

// validName rejects names that cannot be a single path element.
func validName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q is not a valid name", dispatch.ErrInvalidParams, name)
	}
	return nil
}

func (s *Service) createFolder(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	name := strings.TrimSpace(a.Param("name"))
	if name == "" {
		return reply.Ask(sess, a, "name", "📁 What should the folder be called?")
	}
	if err := validName(name); err != nil {
		return dispatch.Outcome{}, err
	}

	var parent workspace.File
	if p := strings.TrimSpace(a.Param("parent")); p != "" {
		found, err := s.ws.SearchFiles(ctx, sess.UserID, p, defaultLimit)
		if err != nil {
			return dispatch.Outcome{}, err
		}
		var folders []workspace.File
		for _, f := range found {
			if f.Folder {
				folders = append(folders, f)
			}
		}
		if len(folders) != 1 {
			return dispatch.Failed("❓ I couldn't pick a single folder named %q (%d found).", p, len(folders)), nil
		}
		parent = folders[0]
	}

	f, err := s.ws.CreateFolder(ctx, sess.UserID, name, parent.ID)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	if parent.ID != "" {
		return dispatch.Done("✅ **Folder created:** %s in %s", f.Name, parent.Name), nil
	}
	return dispatch.Done("✅ **Folder created:** %s", f.Name), nil
}

// find resolves the file an action targets: by "id", or by searching the
// query, selecting when several match.
func (s *Service) find(ctx context.Context, sess *session.Session, a intent.ActionRequest, purpose string) (f workspace.File, out *dispatch.Outcome, err error) {
	if id := a.Param("id"); id != "" {
		f, err = s.ws.GetFile(ctx, sess.UserID, id)
		if errors.Is(err, workspace.ErrNotFound) {
			return f, nil, reply.NotFound("file", id)
		}
		return f, nil, err
	}
	q := strings.TrimSpace(a.Param("query"))
	if q == "" {
		o, err := reply.Ask(sess, a, "query", fmt.Sprintf("📄 Which file should I %s?", purpose))
		return f, &o, err
	}
	files, err := s.ws.SearchFiles(ctx, sess.UserID, q, defaultLimit)
	if err != nil {
		return f, nil, err
	}
	switch len(files) {
	case 0:
		o := dispatch.Failed("📭 No file matches %q.", q)
		return f, &o, nil
	case 1:
		return files[0], nil, nil
	}
	o, err := reply.Select(sess, a, s.candidates(files), "files", purpose)
	return f, &o, err
}

func (s *Service) rename(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	f, out, err := s.find(ctx, sess, a, "rename")
	if out != nil || err != nil {
		return deref(out), err
	}
	name := strings.TrimSpace(a.Param("new_name"))
	if name == "" {
		return reply.Ask(sess, a.With("id", f.ID), "new_name", fmt.Sprintf("✏️ What should I rename **%s** to?", f.Name))
	}
	if err := validName(name); err != nil {
		return dispatch.Outcome{}, err
	}
	if name == f.Name {
		return dispatch.Failed("ℹ️ **%s** already has that name.", f.Name), nil
	}
	if err := s.ws.RenameFile(ctx, sess.UserID, f.ID, name); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("file", f.ID)
		}
		return dispatch.Outcome{}, err
	}
	sess.ClearResults(intent.Drive)
	return dispatch.Done("✅ **Renamed:** %s → %s", f.Name, name), nil
}

func (s *Service) delete(ctx context.Context, sess *session.Session, a intent.ActionRequest) (dispatch.Outcome, error) {
	f, out, err := s.find(ctx, sess, a, "delete")
	if out != nil || err != nil {
		return deref(out), err
	}
	if !reply.Confirmed(a.Parameters) {
		what := fmt.Sprintf("%s **%s**", icon(f), f.Name)
		if f.Folder {
			what += " and everything in it"
		}
		return reply.Confirm(sess, a.With("id", f.ID), "🗑️ Move "+what+" to the trash?")
	}
	if err := s.ws.DeleteFile(ctx, sess.UserID, f.ID); err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return dispatch.Outcome{}, reply.NotFound("file", f.ID)
		}
		return dispatch.Outcome{}, err
	}
	sess.ClearResults(intent.Drive)
	return dispatch.Done("🗑️ **Moved to trash:** %s", f.Name), nil
}

func deref(o *dispatch.Outcome) dispatch.Outcome {
	if o == nil {
		return dispatch.Outcome{}
	}
	return *o
}
