package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NotApplicable is stored in text fields that have no meaning for a case,
// e.g. the duration of a warning or the appealability of a kick.
const NotApplicable = "N/A"

// TimestampLayout is the fixed layout of Case.Timestamp.
const TimestampLayout = "01/02/2006 03:04 PM"

// Action is the disciplinary action a case records. It doubles as the
// lifecycle state of temporary mutes and bans.
type Action string

const (
	ActionWarned     Action = "Warned"
	ActionMuted      Action = "Muted"
	ActionUnmuted    Action = "Unmuted"
	ActionKicked     Action = "Kicked"
	ActionBanned     Action = "Banned"
	ActionUnbanned   Action = "Unbanned"
	ActionSoftbanned Action = "Softbanned"
)

var actions = []Action{
	ActionWarned, ActionMuted, ActionUnmuted, ActionKicked,
	ActionBanned, ActionUnbanned, ActionSoftbanned,
}

// ParseAction matches s against the known actions, ignoring case.
func ParseAction(s string) (Action, bool) {
	s = strings.TrimSpace(s)
	for _, a := range actions {
		if strings.EqualFold(s, string(a)) {
			return a, true
		}
	}
	return "", false
}

// Case represents a single moderation case.
// The database table is named 'cases'; the JSON layout is one file per case.
type Case struct {
	GuildID     string     `db:"guild_id" json:"-"`
	CaseID      int        `db:"case_id" json:"-"` // unique per guild
	Action      Action     `db:"action" json:"action"`
	ModeratorID string     `db:"moderator_id" json:"moderator"`
	SubjectID   string     `db:"subject_id" json:"member"`
	Reason      string     `db:"reason" json:"reason"`
	Duration    string     `db:"duration" json:"duration"`     // formatted, or NotApplicable
	Appealable  string     `db:"appealable" json:"appealable"` // free text, or NotApplicable
	Timestamp   string     `db:"timestamp" json:"timestamp"`   // TimestampLayout, UTC
	EndTime     *time.Time `db:"end_time" json:"end_time,omitempty"`
}

// Expired reports whether the case is a time-bounded action whose end time
// lies strictly before now.
func (c Case) Expired(now time.Time) bool {
	return c.EndTime != nil && now.After(*c.EndTime)
}

// legacyEndTimeLayout matches end times written without a zone offset,
// which are taken as UTC.
const legacyEndTimeLayout = "2006-01-02T15:04:05.999999999"

// UnmarshalJSON also reads case files whose moderator and member ids are
// JSON numbers and whose end_time has no zone offset.
func (c *Case) UnmarshalJSON(data []byte) error {
	type plain Case
	aux := struct {
		*plain
		ModeratorID json.RawMessage `json:"moderator"`
		SubjectID   json.RawMessage `json:"member"`
		EndTime     json.RawMessage `json:"end_time"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if c.ModeratorID, err = decodeID(aux.ModeratorID); err != nil {
		return fmt.Errorf("moderator: %w", err)
	}
	if c.SubjectID, err = decodeID(aux.SubjectID); err != nil {
		return fmt.Errorf("member: %w", err)
	}
	if c.EndTime, err = decodeEndTime(aux.EndTime); err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	return nil
}

// decodeID accepts a snowflake as a string or as a bare integer. Numbers are
// kept as text so ids above 2^53 survive.
func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	if _, err := n.Int64(); err != nil {
		return "", fmt.Errorf("id %s is not an integer", n)
	}
	return n.String(), nil
}

func decodeEndTime(raw json.RawMessage) (*time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NotApplicable) {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.ParseInLocation(legacyEndTimeLayout, s, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("unrecognised time %q", s)
		}
	}
	t = t.UTC()
	return &t, nil
}

var (
	ErrUnknownField      = errors.New("unknown case field")
	ErrInvalidFieldValue = errors.New("invalid value for case field")
)

// EditableFields lists the field names accepted by SetField, using the
// persisted JSON names.
var EditableFields = []string{
	"action", "moderator", "member", "reason",
	"duration", "appealable", "timestamp", "end_time",
}

// SetField assigns value to the named field. Unknown names are rejected
// with ErrUnknownField instead of being added to the record.
func (c *Case) SetField(field, value string) error {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "action":
		a, ok := ParseAction(value)
		if !ok {
			return fmt.Errorf("%w: action %q", ErrInvalidFieldValue, value)
		}
		c.Action = a
	case "moderator":
		c.ModeratorID = value
	case "member":
		c.SubjectID = value
	case "reason":
		c.Reason = value
	case "duration":
		c.Duration = value
	case "appealable":
		c.Appealable = value
	case "timestamp":
		c.Timestamp = value
	case "end_time":
		if strings.EqualFold(strings.TrimSpace(value), NotApplicable) {
			c.EndTime = nil
			return nil
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: end_time must be RFC 3339 or %s", ErrInvalidFieldValue, NotApplicable)
		}
		t = t.UTC()
		c.EndTime = &t
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}
