package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Reactions maps an emoji to the ordered set of user ids that reacted with it.
// Emoji keys keep the order in which they were first added.
type Reactions struct {
	keys  []string
	users map[string][]int
}

// Toggle adds userID to the emoji's set, or removes it when already present.
// An emoji whose set becomes empty is dropped. It reports whether the user was added.
func (r *Reactions) Toggle(emoji string, userID int) bool {
	if r.users == nil {
		r.users = make(map[string][]int)
	}
	ids, ok := r.users[emoji]
	for i, id := range ids {
		if id == userID {
			ids = append(ids[:i:i], ids[i+1:]...)
			if len(ids) == 0 {
				r.remove(emoji)
			} else {
				r.users[emoji] = ids
			}
			return false
		}
	}
	if !ok {
		r.keys = append(r.keys, emoji)
	}
	r.users[emoji] = append(ids, userID)
	return true
}

func (r *Reactions) remove(emoji string) {
	delete(r.users, emoji)
	for i, k := range r.keys {
		if k == emoji {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			return
		}
	}
}

// Emojis returns the emoji keys in insertion order.
func (r Reactions) Emojis() []string {
	return append([]string(nil), r.keys...)
}

// Users returns the ids that reacted with emoji.
func (r Reactions) Users(emoji string) []int {
	return append([]int(nil), r.users[emoji]...)
}

// Has reports whether userID reacted with emoji.
func (r Reactions) Has(emoji string, userID int) bool {
	for _, id := range r.users[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// Len returns the number of distinct emojis.
func (r Reactions) Len() int {
	return len(r.keys)
}

// MarshalJSON encodes the reactions as an object, preserving emoji order.
func (r Reactions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		ids, err := json.Marshal(r.users[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(ids)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an emoji object, keeping key order and dropping
// duplicate ids and empty sets.
func (r *Reactions) UnmarshalJSON(data []byte) error {
	*r = Reactions{}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("reactions: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		emoji, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("reactions: invalid key %v", keyTok)
		}
		var ids []int
		if err := dec.Decode(&ids); err != nil {
			return fmt.Errorf("reactions %q: %w", emoji, err)
		}
		for _, id := range ids {
			if !r.Has(emoji, id) {
				r.Toggle(emoji, id)
			}
		}
	}
	_, err = dec.Token()
	return err
}

// Scan implements sql.Scanner.
func (r *Reactions) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = Reactions{}
		return nil
	case []byte:
		return r.UnmarshalJSON(v)
	case string:
		return r.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("reactions: unsupported column type %T", src)
	}
}

// Value implements driver.Valuer.
func (r Reactions) Value() (driver.Value, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// UserIDSet is an ordered set of user ids.
type UserIDSet []int

// Contains reports whether id is in the set.
func (s UserIDSet) Contains(id int) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id when absent and reports whether the set changed.
func (s *UserIDSet) Add(id int) bool {
	if s.Contains(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// MarshalJSON encodes an empty set as [] rather than null.
func (s UserIDSet) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(s))
}

// Scan implements sql.Scanner.
func (s *UserIDSet) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("user id set: unsupported column type %T", src)
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	*s = nil
	for _, id := range ids {
		s.Add(id)
	}
	return nil
}

// Value implements driver.Valuer.
func (s UserIDSet) Value() (driver.Value, error) {
	b, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Formatting is the client's inline formatting payload. It is stored and
// relayed verbatim.
type Formatting json.RawMessage

// MarshalJSON encodes an unset payload as {}.
func (f Formatting) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("{}"), nil
	}
	return json.RawMessage(f).MarshalJSON()
}

// UnmarshalJSON keeps the raw payload, treating null as unset.
func (f *Formatting) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}
	*f = append((*f)[:0], data...)
	return nil
}

// Scan implements sql.Scanner.
func (f *Formatting) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = nil
	case []byte:
		*f = append(Formatting(nil), v...)
	case string:
		*f = Formatting(v)
	default:
		return fmt.Errorf("formatting: unsupported column type %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (f Formatting) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "{}", nil
	}
	return string(f), nil
}
