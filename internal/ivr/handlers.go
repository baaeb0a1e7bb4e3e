// Package ivr implements the webhook call flow: the telephony gateway POSTs
// caller input to these handlers, which consult the directory and message
// store and answer with a call-control document naming the next step.
//
// The flow is stateless between requests. Continuation state travels in the
// callback URLs handed to the gateway (the archive-choice message id, the
// recording destination token) or lives in the store (the played flag).
package ivr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeana-hines/group-voice-messaging/internal/model"
	"github.com/jeana-hines/group-voice-messaging/internal/repo"
	"github.com/jeana-hines/group-voice-messaging/internal/twiml"
)

// Digits 3..9 address the caller's groups, so only the first seven groups are
// reachable from the main menu. Additional groups are ignored, not an error.
const maxMenuGroups = 7

// Notifier is told about each saved message so a "new voice message" text can
// be queued for the recipient. Best-effort: failures never affect the call.
type Notifier interface {
	MessageSaved(ctx context.Context, m *model.Message)
}

type Handler struct {
	users    repo.UserRepository
	messages repo.MessageRepository
	notifier Notifier // nil when notifications are disabled
}

func NewHandler(users repo.UserRepository, messages repo.MessageRepository, notifier Notifier) *Handler {
	return &Handler{users: users, messages: messages, notifier: notifier}
}

// Voice greets the caller, reports the unread count, and gathers the main
// menu choice. Unknown callers get a terminal hangup with no further queries.
func (h *Handler) Voice(w http.ResponseWriter, r *http.Request) {
	caller := r.FormValue("From")

	user, err := h.users.GetByPhone(r.Context(), caller)
	if errors.Is(err, repo.ErrNotFound) {
		respond(w, twiml.SayHangup("Goodbye."))
		return
	}
	if err != nil {
		slog.Error("voice: user lookup failed", "from", caller, "err", err)
		respond(w, twiml.SayHangup("Error."))
		return
	}

	count, err := h.messages.CountUnread(r.Context(), caller)
	if err != nil {
		slog.Error("voice: unread count failed", "from", caller, "err", err)
		respond(w, twiml.SayHangup("Error."))
		return
	}

	respond(w, &twiml.Response{
		Gather: &twiml.Gather{
			NumDigits: 1,
			Action:    "/menu",
			Method:    http.MethodPost,
			Say:       &twiml.Say{Text: greeting(user, count)},
		},
	})
}

func greeting(user *model.User, unread int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s. %s", user.Name, countPhrase(unread))
	b.WriteString(" Press 1 to listen to your messages.")
	b.WriteString(" Press 2 to record a message to an individual.")
	for i, group := range user.Groups {
		if i >= maxMenuGroups {
			break
		}
		fmt.Fprintf(&b, " Press %d to send a message to %s.", i+3, group)
	}
	return b.String()
}

func countPhrase(n int) string {
	switch n {
	case 0:
		return "You have no new messages."
	case 1:
		return "You have 1 new message."
	default:
		return fmt.Sprintf("You have %d new messages.", n)
	}
}

// Menu dispatches on the digit gathered at the greeting. Unhandled digits
// redirect back to the greeting rather than dead-ending the call.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	digit := r.FormValue("Digits")
	caller := r.FormValue("From")

	switch {
	case digit == "1":
		h.playOldestUnread(w, r, caller)
	case digit == "2":
		h.promptRecipient(w, r, caller)
	case digit >= "3" && digit <= "9" && len(digit) == 1:
		h.promptGroupRecording(w, r, caller, int(digit[0]-'3'))
	default:
		respond(w, twiml.RedirectTo("/voice"))
	}
}

// playOldestUnread is one iteration of the unread playback loop: fetch the
// oldest unread message, play it, and gather the archive choice. Archiving
// redirects back here, so the caller walks the queue one message per request.
func (h *Handler) playOldestUnread(w http.ResponseWriter, r *http.Request, caller string) {
	msg, err := h.messages.OldestUnread(r.Context(), caller)
	if errors.Is(err, repo.ErrNotFound) {
		respond(w, twiml.SayRedirect("You have no more new messages.", "/voice"))
		return
	}
	if err != nil {
		slog.Error("menu: oldest unread lookup failed", "from", caller, "err", err)
		respond(w, twiml.SayRedirect("Error.", "/voice"))
		return
	}

	senderName := "a group member"
	if sender, err := h.users.GetByPhone(r.Context(), msg.FromNumber); err == nil {
		senderName = sender.Name
	} else if !errors.Is(err, repo.ErrNotFound) {
		slog.Error("menu: sender lookup failed", "sender", msg.FromNumber, "err", err)
		respond(w, twiml.SayRedirect("Error.", "/voice"))
		return
	}

	respond(w, &twiml.Response{
		Say:  &twiml.Say{Text: fmt.Sprintf("You have a message from %s.", senderName)},
		Play: &twiml.Play{URL: msg.RecordingURL},
		Gather: &twiml.Gather{
			NumDigits: 1,
			Action:    "/archive-choice?msgId=" + msg.ID.String(),
			Method:    http.MethodPost,
			Say: &twiml.Say{
				Text: "Press 1 to archive this message and hear the next. " +
					"Press 2 to keep it as new and return to the main menu.",
			},
		},
	})
}

// promptRecipient speaks the roster of users who share a group with the
// caller and gathers a two-digit 1-based selection. The roster order comes
// from the directory and is deterministic, so the selection request resolves
// the same list.
func (h *Handler) promptRecipient(w http.ResponseWriter, r *http.Request, caller string) {
	contacts, ok := h.contacts(w, r, caller)
	if !ok {
		return
	}
	if len(contacts) == 0 {
		respond(w, twiml.SayRedirect("There is no one available to message.", "/voice"))
		return
	}

	var b strings.Builder
	b.WriteString("Who is this message for? Use two digits to select. Precede with a zero if the number is less than ten.")
	for i, c := range contacts {
		fmt.Fprintf(&b, " Press %d for %s.", i+1, c.Name)
	}

	respond(w, &twiml.Response{
		Gather: &twiml.Gather{
			NumDigits: 2,
			Action:    "/select-recipient",
			Method:    http.MethodPost,
			Say:       &twiml.Say{Text: b.String()},
		},
	})
}

func (h *Handler) promptGroupRecording(w http.ResponseWriter, r *http.Request, caller string, index int) {
	user, err := h.users.GetByPhone(r.Context(), caller)
	if errors.Is(err, repo.ErrNotFound) {
		respond(w, twiml.SayHangup("Goodbye."))
		return
	}
	if err != nil {
		slog.Error("menu: user lookup failed", "from", caller, "err", err)
		respond(w, twiml.SayHangup("Error."))
		return
	}

	if index < 0 || index >= len(user.Groups) || index >= maxMenuGroups {
		respond(w, twiml.SayRedirect("Invalid selection.", "/voice"))
		return
	}
	group := user.Groups[index]

	respond(w, &twiml.Response{
		Say: &twiml.Say{Text: fmt.Sprintf("Record your message for %s. Press pound when finished.", group)},
		Record: &twiml.Record{
			Action:      "/handle-recording?to=" + url.QueryEscape("group-"+group),
			Method:      http.MethodPost,
			FinishOnKey: "#",
		},
	})
}

// ArchiveChoice handles the digit gathered after playback. The message id
// rides in the callback URL; anything that does not parse as one is treated
// as a stale continuation and sent back to the greeting.
func (h *Handler) ArchiveChoice(w http.ResponseWriter, r *http.Request) {
	msgID, err := uuid.Parse(r.URL.Query().Get("msgId"))
	if err != nil {
		respond(w, twiml.RedirectTo("/voice"))
		return
	}

	if r.FormValue("Digits") != "1" {
		respond(w, twiml.SayRedirect("Message kept as new.", "/voice"))
		return
	}

	if err := h.messages.Archive(r.Context(), msgID); err != nil {
		slog.Error("archive failed", "msgId", msgID, "err", err)
		respond(w, twiml.RedirectTo("/voice"))
		return
	}
	respond(w, twiml.SayRedirect("Archived.", "/menu?Digits=1"))
}

// SelectRecipient resolves the two-digit roster index gathered by the
// recipient prompt against the same deterministically ordered contact list.
func (h *Handler) SelectRecipient(w http.ResponseWriter, r *http.Request) {
	caller := r.FormValue("From")

	contacts, ok := h.contacts(w, r, caller)
	if !ok {
		return
	}

	choice, err := strconv.Atoi(r.FormValue("Digits"))
	if err != nil || choice < 1 || choice > len(contacts) {
		respond(w, twiml.SayRedirect("Invalid selection.", "/voice"))
		return
	}
	recipient := contacts[choice-1]

	respond(w, &twiml.Response{
		Say: &twiml.Say{Text: fmt.Sprintf("Record for %s. Press pound when finished.", recipient.Name)},
		Record: &twiml.Record{
			Action:      "/handle-recording?to=" + url.QueryEscape("individual-"+recipient.PhoneNumber),
			Method:      http.MethodPost,
			FinishOnKey: "#",
		},
	})
}

// HandleRecording persists the completed recording for the destination
// encoded in the continuation token. A callback with no recording reference
// means the caller hung up without recording; that is terminal, not an error.
func (h *Handler) HandleRecording(w http.ResponseWriter, r *http.Request) {
	recordingURL := r.FormValue("RecordingUrl")
	if recordingURL == "" {
		respond(w, twiml.SayHangup("No recording saved."))
		return
	}

	caller := r.FormValue("From")
	to := r.URL.Query().Get("to")

	if group, ok := strings.CutPrefix(to, "group-"); ok && group != "" {
		h.saveGroupRecording(w, r, caller, group, recordingURL)
		return
	}
	if number, ok := strings.CutPrefix(to, "individual-"); ok && number != "" {
		h.saveIndividualRecording(w, r, caller, number, recordingURL)
		return
	}
	respond(w, twiml.SayHangup("Invalid recipient."))
}

// saveGroupRecording fans the recording out as one message per group member,
// excluding the caller. Each insert is independent; a partial failure keeps
// what was saved and logs the rest. There is no rollback.
func (h *Handler) saveGroupRecording(w http.ResponseWriter, r *http.Request, caller, group, recordingURL string) {
	members, err := h.users.ListGroupMembers(r.Context(), group)
	if err != nil {
		slog.Error("recording: group member lookup failed", "group", group, "err", err)
		respond(w, twiml.SayHangup("Error."))
		return
	}
	if len(members) == 0 {
		respond(w, twiml.SayHangup("No users in this group."))
		return
	}

	now := time.Now().UTC()
	var msgs []*model.Message
	for _, member := range members {
		if member.PhoneNumber == caller {
			continue
		}
		msgs = append(msgs, &model.Message{
			ID:           uuid.New(),
			FromNumber:   caller,
			ToNumber:     member.PhoneNumber,
			RecordingURL: recordingURL,
			Timestamp:    now,
			Groups:       []string{group},
		})
	}

	saved, err := h.messages.SaveAll(r.Context(), msgs)
	if err != nil {
		slog.Error("recording: group fan-out incomplete",
			"group", group, "saved", saved, "of", len(msgs), "err", err)
	}
	if saved == 0 && len(msgs) > 0 {
		respond(w, twiml.SayHangup("Error."))
		return
	}

	// Notifications are best-effort; on a partial fan-out none are queued
	// rather than guessing which inserts succeeded.
	if h.notifier != nil && err == nil {
		for _, m := range msgs {
			h.notifier.MessageSaved(r.Context(), m)
		}
	}
	respond(w, twiml.SayRedirect("Your message has been saved.", "/voice"))
}

func (h *Handler) saveIndividualRecording(w http.ResponseWriter, r *http.Request, caller, number, recordingURL string) {
	msg := &model.Message{
		ID:           uuid.New(),
		FromNumber:   caller,
		ToNumber:     number,
		RecordingURL: recordingURL,
		Timestamp:    time.Now().UTC(),
		Groups:       []string{},
	}

	if err := h.messages.Save(r.Context(), msg); err != nil {
		slog.Error("recording: save failed", "to", number, "err", err)
		respond(w, twiml.SayHangup("Error."))
		return
	}

	if h.notifier != nil {
		h.notifier.MessageSaved(r.Context(), msg)
	}
	respond(w, twiml.SayRedirect("Your message has been saved.", "/voice"))
}

// contacts loads the caller's roster, handling the unknown-caller and store
// failure branches. Returns ok=false when a response was already written.
func (h *Handler) contacts(w http.ResponseWriter, r *http.Request, caller string) ([]model.User, bool) {
	user, err := h.users.GetByPhone(r.Context(), caller)
	if errors.Is(err, repo.ErrNotFound) {
		respond(w, twiml.SayHangup("Goodbye."))
		return nil, false
	}
	if err != nil {
		slog.Error("caller lookup failed", "from", caller, "err", err)
		respond(w, twiml.SayHangup("Error."))
		return nil, false
	}

	contacts, err := h.users.ListContacts(r.Context(), caller, user.Groups)
	if err != nil {
		slog.Error("contact roster lookup failed", "from", caller, "err", err)
		respond(w, twiml.SayHangup("Error."))
		return nil, false
	}
	return contacts, true
}

func respond(w http.ResponseWriter, resp *twiml.Response) {
	if err := twiml.Write(w, resp); err != nil {
		slog.Error("failed to write call-control response", "err", err)
	}
}
