package notify

import (
	"strings"
)

// Errors is an ordered set of validation messages keyed by attribute.
type Errors struct {
	keys     []string
	messages map[string][]string
}

func NewErrors() *Errors {
	return &Errors{messages: make(map[string][]string)}
}

func (e *Errors) Add(key, message string) {
	if e.messages == nil {
		e.messages = make(map[string][]string)
	}
	if _, ok := e.messages[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.messages[key] = append(e.messages[key], message)
}

func (e *Errors) Get(key string) []string {
	if e == nil {
		return nil
	}
	return e.messages[key]
}

func (e *Errors) Delete(key string) {
	if e == nil {
		return
	}
	if _, ok := e.messages[key]; !ok {
		return
	}
	delete(e.messages, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

func (e *Errors) Empty() bool {
	return e == nil || len(e.keys) == 0
}

func (e *Errors) Keys() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.keys...)
}

// Merge copies every message from other, preserving order.
func (e *Errors) Merge(other *Errors) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		for _, msg := range other.messages[key] {
			e.Add(key, msg)
		}
	}
}

// Map returns messages keyed by attribute, for response details.
func (e *Errors) Map() map[string][]string {
	out := make(map[string][]string, len(e.keys))
	if e == nil {
		return out
	}
	for _, key := range e.keys {
		out[key] = append([]string(nil), e.messages[key]...)
	}
	return out
}

// FullMessages renders each message prefixed with its humanized key, e.g.
// "notifications.sms" + "recipient cannot be blank" becomes
// "Notifications sms recipient cannot be blank". Messages under "base" are
// rendered as is.
func (e *Errors) FullMessages() []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, key := range e.keys {
		for _, msg := range e.messages[key] {
			if key == "base" || key == "" {
				out = append(out, msg)
				continue
			}
			out = append(out, humanize(key)+" "+msg)
		}
	}
	return out
}

func (e *Errors) Error() string {
	return strings.Join(e.FullMessages(), ", ")
}

func humanize(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '.' || r == '_'
	})
	if len(words) == 0 {
		return ""
	}
	out := strings.ToLower(strings.Join(words, " "))
	return strings.ToUpper(out[:1]) + out[1:]
}
