package form

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Submit button names carrying list actions. The add value is the list path;
// the remove value is "<path>:<key>".
const (
	ActionAdd    = "_list_add"
	ActionRemove = "_list_remove"

	keysField = "_keys"
)

// ListEntry is one repetition of a list. Index positions the entry's values;
// Key identifies it across removals.
type ListEntry struct {
	Index int
	Key   string
}

type ListContext struct {
	Element *Element
	Name    Path
	Entries []ListEntry
	Errors  []string
	Form    *Form
}

// ListEntries returns the entries of the list at name. Keys come from the
// hidden "<name>._keys" values; without them every indexed value counts.
func ListEntries(values url.Values, name Path) []ListEntry {
	if keys := values[name.Append(keysField).String()]; len(keys) > 0 {
		out := make([]ListEntry, len(keys))
		for i, k := range keys {
			out[i] = ListEntry{Index: i, Key: k}
		}
		return out
	}
	n := 0
	for k := range values {
		if i, _, ok := entryIndex(k, name); ok && i+1 > n {
			n = i + 1
		}
	}
	out := make([]ListEntry, n)
	for i := range out {
		out[i] = ListEntry{Index: i, Key: strconv.Itoa(i)}
	}
	return out
}

// entryIndex parses "<name>.<i>[.rest]".
func entryIndex(key string, name Path) (int, string, bool) {
	rel, ok := strings.CutPrefix(key, name.String()+".")
	if !ok {
		return 0, "", false
	}
	seg, rest, _ := strings.Cut(rel, ".")
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 {
		return 0, "", false
	}
	return i, rest, true
}

// ApplyListAction applies a pressed add or remove button to values and reports
// whether there was one. The form should be re-rendered instead of processed
// when it returns true.
func ApplyListAction(values url.Values) bool {
	if p := values.Get(ActionAdd); p != "" {
		values.Del(ActionAdd)
		addEntry(values, ParsePath(p))
		return true
	}
	if v := values.Get(ActionRemove); v != "" {
		values.Del(ActionRemove)
		i := strings.LastIndex(v, ":")
		if i < 0 {
			return true
		}
		removeEntry(values, ParsePath(v[:i]), v[i+1:])
		return true
	}
	return false
}

func addEntry(values url.Values, name Path) {
	entries := ListEntries(values, name)
	keys := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	values[name.Append(keysField).String()] = append(keys, nextKey(entries))
}

// removeEntry drops the entry with key and shifts later entries down one index.
// Keys of the remaining entries are kept.
func removeEntry(values url.Values, name Path, key string) {
	entries := ListEntries(values, name)
	idx := -1
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Key == key {
			idx = e.Index
			continue
		}
		keys = append(keys, e.Key)
	}
	if idx < 0 {
		return
	}
	moved := url.Values{}
	for k, v := range values {
		i, rest, ok := entryIndex(k, name)
		if !ok || i < idx {
			continue
		}
		delete(values, k)
		if i == idx {
			continue
		}
		nk := name.Index(i - 1)
		if rest != "" {
			nk = nk.Append(rest)
		}
		moved[nk.String()] = v
	}
	for k, v := range moved {
		values[k] = v
	}
	values[name.Append(keysField).String()] = keys
}

func nextKey(entries []ListEntry) string {
	max := -1
	for _, e := range entries {
		if n, err := strconv.Atoi(e.Key); err == nil && n > max {
			max = n
		}
	}
	if max < 0 {
		return strconv.Itoa(len(entries))
	}
	return strconv.Itoa(max + 1)
}

func (f *Form) renderList(e *Element) templ.Component {
	name := e.NamePath()
	lc := ListContext{
		Element: e,
		Name:    name,
		Entries: ListEntries(f.Values, name),
		Errors:  f.Errors[name.String()],
		Form:    f,
	}
	if e.ListRenderer != nil {
		return e.ListRenderer(lc)
	}

	entry := func(le ListEntry) templ.Component { return f.listEntry(e, name, le) }
	return listFieldset(name.String(), name.Append(keysField).String(), e.listLabel(), lc.Entries, entry, lc.Errors)
}

// listEntry renders one entry. A leaf list renders the element itself without a
// label; a group list renders each child under "<name>.<index>.<childID>".
func (f *Form) listEntry(e *Element, name Path, entry ListEntry) templ.Component {
	item := e.clone()
	item.IsList = false
	if e.IsLeaf() {
		item.Label = Label("")
		return f.formItem(item, &override{name: name.Index(entry.Index), fieldKey: Path{entry.Key}})
	}
	item.Nest = make([]*Element, len(e.Nest))
	for i, child := range e.Nest {
		c := child.clone()
		c.Name = name.Index(entry.Index).Append(child.ID)
		c.FieldKey = Path{entry.Key, child.ID}
		item.Nest[i] = c
	}
	return f.formItem(item, nil)
}
