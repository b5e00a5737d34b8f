package logtail

import (
	"strings"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/sirupsen/logrus"
)

// Field is one key=value pair beyond time, level and msg.
type Field struct {
	Key   string
	Value string
}

// Entry is a parsed log line. Lines that are not key=value formatted keep
// only Raw and Message.
type Entry struct {
	Raw      string
	Time     time.Time
	Level    logrus.Level
	HasLevel bool
	Message  string
	Fields   []Field
}

// Field returns the value for key, if present.
func (e Entry) Field(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Parse decodes a line written by the logrus text formatter:
//
//	time="2024-05-01T12:00:00Z" level=info msg="book created" id=01HX...
//
// Lines that are not logfmt, or carry neither level nor msg, are kept raw.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Message: line}
	pairs, ok := decodePairs(line)
	if !ok {
		return entry
	}

	parsed := Entry{Raw: line}
	structured := false
	for _, p := range pairs {
		switch p.Key {
		case "time":
			if t, err := time.Parse(time.RFC3339, p.Value); err == nil {
				parsed.Time = t
			}
		case "level":
			if lvl, err := logrus.ParseLevel(p.Value); err == nil {
				parsed.Level = lvl
				parsed.HasLevel = true
				structured = true
			}
		case "msg":
			parsed.Message = p.Value
			structured = true
		default:
			parsed.Fields = append(parsed.Fields, p)
		}
	}
	if !structured {
		return entry
	}
	return parsed
}

// decodePairs reads the first logfmt record of line.
func decodePairs(line string) ([]Field, bool) {
	dec := logfmt.NewDecoder(strings.NewReader(line))
	if !dec.ScanRecord() {
		return nil, false
	}
	var out []Field
	for dec.ScanKeyval() {
		out = append(out, Field{Key: string(dec.Key()), Value: string(dec.Value())})
	}
	if dec.Err() != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}
