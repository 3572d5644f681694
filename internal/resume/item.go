package resume

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// Item is a single stored achievement entry. Older documents keep bare
// strings (LegacyText) while everything written by this tool is a structured
// *Achievement. Use Normalize before comparing or merging.
type Item interface {
	ItemText() string
	isItem()
}

// LegacyText is an achievement stored as a bare string.
type LegacyText string

func (t LegacyText) ItemText() string { return string(t) }

func (LegacyText) isItem() {}

// Achievement is a structured achievement record.
type Achievement struct {
	Text             string
	Tags             []string
	MetricType       string
	SourceConfidence string
	SourceDocument   string
	ExtractedDate    string

	extra *object
	// decoded records keep their member order on write.
	decoded bool
}

const (
	keyText             = "text"
	keyTags             = "tags"
	keyMetricType       = "metric_type"
	keySourceConfidence = "source_confidence"
	keySourceDocument   = "source_document"
	keyExtractedDate    = "extracted_date"
)

func (a *Achievement) ItemText() string { return a.Text }

func (*Achievement) isItem() {}

// HasProvenance reports whether the record carries source_document or extracted_date.
func (a *Achievement) HasProvenance() bool {
	if a.SourceDocument != "" || a.ExtractedDate != "" {
		return true
	}
	return a.extra != nil && (a.extra.has(keySourceDocument) || a.extra.has(keyExtractedDate))
}

// HasTag reports whether tag is present, compared exactly.
func (a *Achievement) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}

// Extra returns the raw value of a member the model does not map to a field.
func (a *Achievement) Extra(key string) (json.RawMessage, bool) {
	if a.extra == nil {
		return nil, false
	}
	return a.extra.get(key)
}

// SetExtra stores an additional member, keeping its position if it already exists.
func (a *Achievement) SetExtra(key string, value json.RawMessage) {
	if a.extra == nil {
		a.extra = newObject()
	}
	a.extra.setRaw(key, value)
}

func (a *Achievement) MarshalJSON() ([]byte, error) {
	if !a.decoded {
		return a.marshalFresh()
	}

	obj := a.extra.clone()
	if err := obj.putString(keyText, a.Text); err != nil {
		return nil, err
	}
	if err := obj.putStrings(keyTags, a.Tags); err != nil {
		return nil, err
	}
	if err := a.putOptional(obj); err != nil {
		return nil, err
	}
	return obj.MarshalJSON()
}

// marshalFresh writes a record built in memory: known members first, then
// any extra members in the order they were added.
func (a *Achievement) marshalFresh() ([]byte, error) {
	obj := newObject()
	if err := obj.set(keyText, a.Text); err != nil {
		return nil, err
	}
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	if err := obj.set(keyTags, tags); err != nil {
		return nil, err
	}
	if err := a.putOptional(obj); err != nil {
		return nil, err
	}

	if a.extra != nil {
		for _, key := range a.extra.keys {
			if !obj.has(key) {
				obj.setRaw(key, a.extra.values[key])
			}
		}
	}
	return obj.MarshalJSON()
}

func (a *Achievement) putOptional(obj *object) error {
	for _, f := range []struct {
		key   string
		value string
	}{
		{keyMetricType, a.MetricType},
		{keySourceConfidence, a.SourceConfidence},
		{keySourceDocument, a.SourceDocument},
		{keyExtractedDate, a.ExtractedDate},
	} {
		if err := obj.putString(f.key, f.value); err != nil {
			return err
		}
	}
	return nil
}

func decodeAchievement(r gjson.Result) (*Achievement, error) {
	obj, err := parseObject(r)
	if err != nil {
		return nil, err
	}

	a := &Achievement{extra: obj, decoded: true}
	if a.Text, err = stringMember(obj, keyText); err != nil {
		return nil, err
	}
	if raw, ok := obj.get(keyTags); ok {
		if a.Tags, err = decodeStrings(gjson.ParseBytes(raw)); err != nil {
			return nil, fmt.Errorf("%s: %w", keyTags, err)
		}
	}
	if a.MetricType, err = stringMember(obj, keyMetricType); err != nil {
		return nil, err
	}
	if a.SourceConfidence, err = stringMember(obj, keySourceConfidence); err != nil {
		return nil, err
	}
	if a.SourceDocument, err = stringMember(obj, keySourceDocument); err != nil {
		return nil, err
	}
	if a.ExtractedDate, err = stringMember(obj, keyExtractedDate); err != nil {
		return nil, err
	}
	return a, nil
}

func decodeItem(r gjson.Result) (Item, error) {
	switch {
	case r.Type == gjson.String:
		return LegacyText(r.String()), nil
	case r.IsObject():
		return decodeAchievement(r)
	default:
		return nil, fmt.Errorf("achievement item must be a string or an object, got %s", describe(r))
	}
}

func encodeItem(it Item) (json.RawMessage, error) {
	switch v := it.(type) {
	case LegacyText:
		return encode(string(v))
	case *Achievement:
		return v.MarshalJSON()
	default:
		return nil, fmt.Errorf("unsupported item type %T", it)
	}
}

// Normalize returns the canonical structured form of an item. Structured
// items are returned as is; legacy strings become a record holding only text.
func Normalize(it Item) *Achievement {
	switch v := it.(type) {
	case *Achievement:
		return v
	case LegacyText:
		return &Achievement{Text: string(v)}
	default:
		return nil
	}
}

// DedupKey is the comparison key for exact duplicate detection.
func DedupKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func stringMember(obj *object, key string) (string, error) {
	raw, ok := obj.get(key)
	if !ok {
		return "", nil
	}
	s, err := decodeString(gjson.ParseBytes(raw))
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}
