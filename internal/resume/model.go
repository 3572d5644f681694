package resume

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// LegacyCategory names the group a bare-string achievement list is wrapped into.
const LegacyCategory = "Previous achievements"

const (
	keyExperience     = "experience"
	keyMeta           = "meta"
	keyID             = "id"
	keyCompany        = "company"
	keyCompanyParent  = "company_parent"
	keyPositions      = "positions"
	keyTitle          = "title"
	keyStartDate      = "start_date"
	keyEndDate        = "end_date"
	keyAchievements   = "achievements"
	keyCategory       = "category"
	keySource         = "source"
	keyExtractionDate = "extraction_date"
	keyItems          = "items"
)

// Resume is the whole career document. Only the parts the tool works with
// are mapped; everything else is carried through verbatim.
type Resume struct {
	Experience []*Employer

	extra *object
}

type Employer struct {
	ID            string
	Company       string
	CompanyParent string
	Positions     []*Position

	extra *object
}

type Position struct {
	Title     string
	StartDate string
	EndDate   string

	// Groups holds categorized achievements. Legacy holds a bare-string
	// achievements list; at most one of them is populated.
	Groups []*Group
	Legacy []LegacyText

	legacy bool
	extra  *object
}

// Group is a named, provenance-stamped bundle of achievements.
type Group struct {
	Category       string
	Source         string
	ExtractionDate string
	Items          []Item

	extra *object
}

// PositionRef addresses a position together with its employer.
type PositionRef struct {
	Employer *Employer
	Position *Position
}

// Positions lists every position in document order.
func (r *Resume) Positions() []PositionRef {
	refs := make([]PositionRef, 0)
	for _, e := range r.Experience {
		for _, p := range e.Positions {
			refs = append(refs, PositionRef{Employer: e, Position: p})
		}
	}
	return refs
}

// Version returns meta.version.
func (r *Resume) Version() string {
	return r.meta("version")
}

// LastUpdated returns meta.last_updated.
func (r *Resume) LastUpdated() string {
	return r.meta("last_updated")
}

func (r *Resume) meta(field string) string {
	if r.extra == nil {
		return ""
	}
	raw, ok := r.extra.get(keyMeta)
	if !ok {
		return ""
	}
	return gjson.GetBytes(raw, field).String()
}

// SetLastUpdated stamps meta.last_updated in place.
func (r *Resume) SetLastUpdated(date string) error {
	if r.extra == nil {
		r.extra = newObject()
	}
	raw, _ := r.extra.get(keyMeta)
	updated, err := sjson.SetBytes(raw, "last_updated", date)
	if err != nil {
		return fmt.Errorf("set meta.last_updated: %w", err)
	}
	r.extra.setRaw(keyMeta, updated)
	return nil
}

// Items flattens all achievements of the position regardless of storage shape.
func (p *Position) Items() []Item {
	items := make([]Item, 0, len(p.Legacy))
	for _, t := range p.Legacy {
		items = append(items, t)
	}
	for _, g := range p.Groups {
		items = append(items, g.Items...)
	}
	return items
}

// IsLegacy reports whether achievements are stored as a bare-string list.
func (p *Position) IsLegacy() bool {
	return p.legacy
}

// UpgradeLegacy wraps a bare-string achievements list into a single group.
// The strings are kept as they are. It reports whether anything changed.
func (p *Position) UpgradeLegacy() bool {
	if !p.legacy {
		return false
	}

	items := make([]Item, 0, len(p.Legacy))
	for _, t := range p.Legacy {
		items = append(items, t)
	}
	p.Groups = append([]*Group{{Category: LegacyCategory, Items: items}}, p.Groups...)
	p.Legacy = nil
	p.legacy = false
	return true
}

// AppendGroup adds a group after the existing ones, upgrading a legacy list first.
func (p *Position) AppendGroup(g *Group) {
	p.UpgradeLegacy()
	p.Groups = append(p.Groups, g)
}

// ReplaceGroups drops every existing achievement and stores groups instead.
func (p *Position) ReplaceGroups(groups []*Group) {
	p.Legacy = nil
	p.legacy = false
	p.Groups = groups
}

// PruneEmptyGroups removes groups without items and returns how many were removed.
func (p *Position) PruneEmptyGroups() int {
	kept := p.Groups[:0]
	for _, g := range p.Groups {
		if len(g.Items) > 0 {
			kept = append(kept, g)
		}
	}
	removed := len(p.Groups) - len(kept)
	for i := len(kept); i < len(p.Groups); i++ {
		p.Groups[i] = nil
	}
	p.Groups = kept
	return removed
}

func (r *Resume) MarshalJSON() ([]byte, error) {
	obj := newObject()
	if r.extra != nil {
		obj = r.extra.clone()
	}
	if r.Experience != nil || obj.has(keyExperience) {
		employers := r.Experience
		if employers == nil {
			employers = []*Employer{}
		}
		if err := obj.set(keyExperience, employers); err != nil {
			return nil, err
		}
	}
	return obj.MarshalJSON()
}

func (e *Employer) MarshalJSON() ([]byte, error) {
	obj := newObject()
	if e.extra != nil {
		obj = e.extra.clone()
	}
	if err := obj.putString(keyID, e.ID); err != nil {
		return nil, err
	}
	if err := obj.putString(keyCompany, e.Company); err != nil {
		return nil, err
	}
	if err := obj.putString(keyCompanyParent, e.CompanyParent); err != nil {
		return nil, err
	}
	if e.Positions != nil || obj.has(keyPositions) {
		positions := e.Positions
		if positions == nil {
			positions = []*Position{}
		}
		if err := obj.set(keyPositions, positions); err != nil {
			return nil, err
		}
	}
	return obj.MarshalJSON()
}

func (p *Position) MarshalJSON() ([]byte, error) {
	obj := newObject()
	if p.extra != nil {
		obj = p.extra.clone()
	}
	if err := obj.putString(keyTitle, p.Title); err != nil {
		return nil, err
	}
	if err := obj.putString(keyStartDate, p.StartDate); err != nil {
		return nil, err
	}
	if err := obj.putString(keyEndDate, p.EndDate); err != nil {
		return nil, err
	}

	switch {
	case p.legacy:
		legacy := p.Legacy
		if legacy == nil {
			legacy = []LegacyText{}
		}
		if err := obj.set(keyAchievements, legacy); err != nil {
			return nil, err
		}
	case p.Groups != nil || obj.has(keyAchievements):
		groups := p.Groups
		if groups == nil {
			groups = []*Group{}
		}
		if err := obj.set(keyAchievements, groups); err != nil {
			return nil, err
		}
	}
	return obj.MarshalJSON()
}

func (g *Group) MarshalJSON() ([]byte, error) {
	obj := newObject()
	if g.extra != nil {
		obj = g.extra.clone()
	}
	if err := obj.putString(keyCategory, g.Category); err != nil {
		return nil, err
	}
	if err := obj.putString(keySource, g.Source); err != nil {
		return nil, err
	}
	if err := obj.putString(keyExtractionDate, g.ExtractionDate); err != nil {
		return nil, err
	}

	if len(g.Items) == 0 && !obj.has(keyItems) && g.extra != nil {
		return obj.MarshalJSON()
	}

	items := make([]json.RawMessage, 0, len(g.Items))
	for _, it := range g.Items {
		raw, err := encodeItem(it)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	if err := obj.set(keyItems, items); err != nil {
		return nil, err
	}
	return obj.MarshalJSON()
}

func decodeResume(r gjson.Result) (*Resume, error) {
	obj, err := parseObject(r)
	if err != nil {
		return nil, err
	}

	res := &Resume{extra: obj}
	raw, ok := obj.get(keyExperience)
	if !ok {
		return res, nil
	}

	arr := gjson.ParseBytes(raw)
	if !arr.IsArray() {
		return nil, fmt.Errorf("%s: expected array, got %s", keyExperience, describe(arr))
	}
	res.Experience = make([]*Employer, 0)
	for i, v := range arr.Array() {
		e, err := decodeEmployer(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", keyExperience, i, err)
		}
		res.Experience = append(res.Experience, e)
	}
	return res, nil
}

func decodeEmployer(r gjson.Result) (*Employer, error) {
	obj, err := parseObject(r)
	if err != nil {
		return nil, err
	}

	e := &Employer{extra: obj}
	if e.ID, err = stringMember(obj, keyID); err != nil {
		return nil, err
	}
	if e.Company, err = stringMember(obj, keyCompany); err != nil {
		return nil, err
	}
	if e.CompanyParent, err = stringMember(obj, keyCompanyParent); err != nil {
		return nil, err
	}

	raw, ok := obj.get(keyPositions)
	if !ok {
		return e, nil
	}
	arr := gjson.ParseBytes(raw)
	if !arr.IsArray() {
		return nil, fmt.Errorf("%s: expected array, got %s", keyPositions, describe(arr))
	}
	e.Positions = make([]*Position, 0)
	for i, v := range arr.Array() {
		p, err := decodePosition(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", keyPositions, i, err)
		}
		e.Positions = append(e.Positions, p)
	}
	return e, nil
}

func decodePosition(r gjson.Result) (*Position, error) {
	obj, err := parseObject(r)
	if err != nil {
		return nil, err
	}

	p := &Position{extra: obj}
	if p.Title, err = stringMember(obj, keyTitle); err != nil {
		return nil, err
	}
	if p.StartDate, err = stringMember(obj, keyStartDate); err != nil {
		return nil, err
	}
	if p.EndDate, err = stringMember(obj, keyEndDate); err != nil {
		return nil, err
	}

	raw, ok := obj.get(keyAchievements)
	if !ok {
		return p, nil
	}
	arr := gjson.ParseBytes(raw)
	if arr.Type == gjson.Null {
		return p, nil
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("%s: expected array, got %s", keyAchievements, describe(arr))
	}

	elements := arr.Array()
	strs, objs := 0, 0
	for _, v := range elements {
		switch {
		case v.Type == gjson.String:
			strs++
		case v.IsObject():
			objs++
		default:
			return nil, fmt.Errorf("%s: unexpected element %s", keyAchievements, describe(v))
		}
	}
	if strs > 0 && objs > 0 {
		return nil, fmt.Errorf("%s: mixes bare strings and groups", keyAchievements)
	}

	if strs > 0 {
		p.legacy = true
		p.Legacy = make([]LegacyText, 0, strs)
		for _, v := range elements {
			p.Legacy = append(p.Legacy, LegacyText(v.String()))
		}
		return p, nil
	}

	p.Groups = make([]*Group, 0, objs)
	for i, v := range elements {
		g, err := decodeGroup(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", keyAchievements, i, err)
		}
		p.Groups = append(p.Groups, g)
	}
	return p, nil
}

func decodeGroup(r gjson.Result) (*Group, error) {
	obj, err := parseObject(r)
	if err != nil {
		return nil, err
	}

	g := &Group{extra: obj}
	if g.Category, err = stringMember(obj, keyCategory); err != nil {
		return nil, err
	}
	if g.Source, err = stringMember(obj, keySource); err != nil {
		return nil, err
	}
	if g.ExtractionDate, err = stringMember(obj, keyExtractionDate); err != nil {
		return nil, err
	}

	g.Items = make([]Item, 0)
	raw, ok := obj.get(keyItems)
	if !ok {
		return g, nil
	}
	arr := gjson.ParseBytes(raw)
	if arr.Type == gjson.Null {
		return g, nil
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("%s: expected array, got %s", keyItems, describe(arr))
	}
	for i, v := range arr.Array() {
		it, err := decodeItem(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", keyItems, i, err)
		}
		g.Items = append(g.Items, it)
	}
	return g, nil
}
