package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ActionType names one of the five action kinds.
type ActionType string

const (
	ActionSlackStatus ActionType = "slack_status"
	ActionJoinMeeting ActionType = "join_meeting"
	ActionPostStandup ActionType = "post_standup"
	ActionStartTimer  ActionType = "start_timer"
	ActionStopTimer   ActionType = "stop_timer"
)

// ActionTypes lists every supported action kind.
var ActionTypes = []ActionType{
	ActionSlackStatus, ActionJoinMeeting, ActionPostStandup, ActionStartTimer, ActionStopTimer,
}

// Step is implemented by SlackStatus, JoinMeeting, PostStandup, StartTimer
// and StopTimer. The set is closed.
type Step interface {
	Type() ActionType
	validate() error
}

// SlackStatus sets the chat status. Expiration is a unix timestamp in
// seconds; zero means the status does not expire.
type SlackStatus struct {
	Text       string `json:"text" yaml:"text"`
	Emoji      string `json:"emoji" yaml:"emoji"`
	Expiration int64  `json:"expiration,omitempty" yaml:"expiration,omitempty"`
}

func (SlackStatus) Type() ActionType { return ActionSlackStatus }

func (s SlackStatus) validate() error {
	if s.Text == "" {
		return errors.New("text is required")
	}
	if s.Emoji == "" {
		return errors.New("emoji is required")
	}
	return nil
}

// ExpiresAt returns the expiration as a time, or nil when unset.
func (s SlackStatus) ExpiresAt() *time.Time {
	if s.Expiration <= 0 {
		return nil
	}
	t := time.Unix(s.Expiration, 0)
	return &t
}

// JoinMeeting joins the triggering calendar event's meeting.
type JoinMeeting struct{}

func (JoinMeeting) Type() ActionType { return ActionJoinMeeting }
func (JoinMeeting) validate() error  { return nil }

// PostStandup generates the standup report and posts it to Channel.
type PostStandup struct {
	Channel string `json:"channel" yaml:"channel"`
}

func (PostStandup) Type() ActionType { return ActionPostStandup }

func (p PostStandup) validate() error {
	if p.Channel == "" {
		return errors.New("channel is required")
	}
	return nil
}

// StartTimer starts a time-tracking entry.
type StartTimer struct {
	Activity string `json:"activity" yaml:"activity"`
	Project  string `json:"project,omitempty" yaml:"project,omitempty"`
}

func (StartTimer) Type() ActionType { return ActionStartTimer }

func (s StartTimer) validate() error {
	if s.Activity == "" {
		return errors.New("activity is required")
	}
	return nil
}

// StopTimer stops the running time-tracking entry.
type StopTimer struct{}

func (StopTimer) Type() ActionType { return ActionStopTimer }
func (StopTimer) validate() error  { return nil }

// Action is one step of a rule. On disk it is {"type": …, "config": {…}}.
type Action struct {
	Step
}

// NewAction wraps a step.
func NewAction(step Step) Action { return Action{Step: step} }

type actionWire struct {
	Type   ActionType      `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	if a.Step == nil {
		return nil, errors.New("marshal action: empty step")
	}
	cfg, err := json.Marshal(a.Step)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionWire{Type: a.Type(), Config: cfg})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	step, err := decodeStep(w.Type, func(v any) error {
		if len(w.Config) == 0 || string(w.Config) == "null" {
			return nil
		}
		return json.Unmarshal(w.Config, v)
	})
	if err != nil {
		return err
	}
	a.Step = step
	return nil
}

func (a Action) MarshalYAML() (any, error) {
	if a.Step == nil {
		return nil, errors.New("marshal action: empty step")
	}
	return struct {
		Type   ActionType `yaml:"type"`
		Config Step       `yaml:"config"`
	}{a.Type(), a.Step}, nil
}

func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	var w struct {
		Type   ActionType `yaml:"type"`
		Config yaml.Node  `yaml:"config"`
	}
	if err := value.Decode(&w); err != nil {
		return err
	}
	step, err := decodeStep(w.Type, func(v any) error {
		if w.Config.Kind == 0 {
			return nil
		}
		return w.Config.Decode(v)
	})
	if err != nil {
		return err
	}
	a.Step = step
	return nil
}

func decodeStep(t ActionType, decode func(any) error) (Step, error) {
	var (
		step Step
		err  error
	)
	switch t {
	case ActionSlackStatus:
		var s SlackStatus
		err = decode(&s)
		step = s
	case ActionJoinMeeting:
		step = JoinMeeting{}
	case ActionPostStandup:
		var s PostStandup
		err = decode(&s)
		step = s
	case ActionStartTimer:
		var s StartTimer
		err = decode(&s)
		step = s
	case ActionStopTimer:
		step = StopTimer{}
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", ErrInvalidRule, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s config: %w", t, err)
	}
	return step, nil
}

// ParseAction builds an action from the CLI shorthand "type:key=value,key=value",
// e.g. "slack_status:text=In a meeting,emoji=:calendar:".
func ParseAction(s string) (Action, error) {
	typ, rest, _ := strings.Cut(s, ":")
	cfg := map[string]any{}
	if rest != "" {
		for _, kv := range strings.Split(rest, ",") {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return Action{}, fmt.Errorf("%w: malformed action option %q", ErrInvalidRule, kv)
			}
			cfg[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	if exp, ok := cfg["expiration"].(string); ok {
		n, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%w: expiration must be a unix timestamp", ErrInvalidRule)
		}
		cfg["expiration"] = n
	}

	cfgRaw, err := json.Marshal(cfg)
	if err != nil {
		return Action{}, err
	}
	step, err := decodeStep(ActionType(strings.TrimSpace(typ)), func(v any) error {
		return json.Unmarshal(cfgRaw, v)
	})
	if err != nil {
		return Action{}, err
	}

	a := NewAction(step)
	if err := a.validate(); err != nil {
		return Action{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, a.Type(), err)
	}
	return a, nil
}
