package form

import (
	"net/url"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListEntries_FromIndexedValues(t *testing.T) {
	vals := url.Values{"tags.0": {"a"}, "tags.2": {"c"}, "other.5": {"x"}, "tags.name": {"n"}}
	assert.Equal(t, []ListEntry{{0, "0"}, {1, "1"}, {2, "2"}}, ListEntries(vals, Path{"tags"}))
}

func TestListEntries_FromKeys(t *testing.T) {
	vals := url.Values{"tags._keys": {"4", "7"}}
	assert.Equal(t, []ListEntry{{0, "4"}, {1, "7"}}, ListEntries(vals, Path{"tags"}))
}

func TestLeafList_Render(t *testing.T) {
	f := quietForm(&Element{ID: "tags", Label: Label("Tags"), IsList: true, Render: Input("text")})
	f.Values = url.Values{"tags.0": {"a"}, "tags.1": {"b"}}

	out := render(t, f.Render())

	assert.Contains(t, out, `<legend>Tags</legend>`)
	assert.Contains(t, out, `name="tags.0" value="a"`)
	assert.Contains(t, out, `name="tags.1" value="b"`)
	assert.Contains(t, out, `name="_list_remove" value="tags:0"`)
	assert.Contains(t, out, `name="_list_remove" value="tags:1"`)
	assert.Contains(t, out, `name="_list_add" value="tags"`)
	assert.Contains(t, out, `data-field-key="1"`)
	assert.NotContains(t, out, "<label", "list entries have no label")
}

func TestList_EmptyLabelFallsBackToID(t *testing.T) {
	f := quietForm(&Element{ID: "tags", Label: Label(""), IsList: true, Render: Input("text")})
	assert.Contains(t, render(t, f.Render()), `<legend>tags</legend>`)
}

func TestGroupList_RewritesChildNamesAndKeys(t *testing.T) {
	f := quietForm(&Element{ID: "addresses", IsList: true, Columns: EvenColumns(), Nest: []*Element{
		{ID: "street", Render: Input("text")},
		{ID: "city", Render: Input("text")},
	}})
	f.Values = url.Values{"addresses._keys": {"3", "9"}, "addresses.1.city": {"Lima"}}

	out := render(t, f.Render())

	assert.Contains(t, out, `name="addresses.0.street"`)
	assert.Contains(t, out, `name="addresses.1.city" value="Lima"`)
	assert.Contains(t, out, `data-field-key="9.city"`)
	assert.Equal(t, 2, strings.Count(out, `<div class="form-row">`))
	assert.Equal(t, 4, strings.Count(out, `span-12`))
	// the original descriptor is untouched
	assert.Nil(t, f.Find("addresses").Nest[0].Name)
}

func TestList_CustomRenderer(t *testing.T) {
	var got ListContext
	f := quietForm(&Element{ID: "tags", IsList: true, Render: Input("text"), ListRenderer: func(lc ListContext) templ.Component {
		got = lc
		return templ.Raw("custom")
	}})
	f.Values = url.Values{"tags.0": {"a"}}

	assert.Equal(t, "custom", render(t, f.Render()))
	assert.Equal(t, Path{"tags"}, got.Name)
	assert.Len(t, got.Entries, 1)
	assert.Same(t, f, got.Form)
}

func TestApplyListAction_None(t *testing.T) {
	vals := url.Values{"tags.0": {"a"}}
	assert.False(t, ApplyListAction(vals))
}

func TestApplyListAction_Add(t *testing.T) {
	vals := url.Values{"tags.0": {"a"}, ActionAdd: {"tags"}}

	require.True(t, ApplyListAction(vals))

	assert.Empty(t, vals.Get(ActionAdd))
	assert.Equal(t, []string{"0", "1"}, vals["tags._keys"])
	assert.Len(t, ListEntries(vals, Path{"tags"}), 2)
}

func TestApplyListAction_AddToEmpty(t *testing.T) {
	vals := url.Values{ActionAdd: {"tags"}}
	require.True(t, ApplyListAction(vals))
	assert.Equal(t, []string{"0"}, vals["tags._keys"])
}

func TestApplyListAction_AddAfterRemoveUsesFreshKey(t *testing.T) {
	vals := url.Values{"tags._keys": {"1", "4"}, ActionAdd: {"tags"}}
	require.True(t, ApplyListAction(vals))
	assert.Equal(t, []string{"1", "4", "5"}, vals["tags._keys"])
}

func TestApplyListAction_RemoveShiftsLaterEntries(t *testing.T) {
	vals := url.Values{
		"tags._keys":  {"0", "1", "2"},
		"tags.0":      {"a"},
		"tags.1":      {"b"},
		"tags.2":      {"c"},
		ActionRemove:  {"tags:1"},
		"untouched.1": {"z"},
	}

	require.True(t, ApplyListAction(vals))

	assert.Equal(t, []string{"0", "2"}, vals["tags._keys"])
	assert.Equal(t, "a", vals.Get("tags.0"))
	assert.Equal(t, "c", vals.Get("tags.1"))
	assert.NotContains(t, vals, "tags.2")
	assert.Equal(t, "z", vals.Get("untouched.1"))
	assert.Empty(t, vals.Get(ActionRemove))
}

func TestApplyListAction_RemoveGroupEntry(t *testing.T) {
	vals := url.Values{
		"addresses.0.street": {"Main"},
		"addresses.0.city":   {"Quito"},
		"addresses.1.street": {"Side"},
		"addresses.1.city":   {"Lima"},
		ActionRemove:         {"addresses:0"},
	}

	require.True(t, ApplyListAction(vals))

	assert.Equal(t, []string{"1"}, vals["addresses._keys"])
	assert.Equal(t, "Side", vals.Get("addresses.0.street"))
	assert.Equal(t, "Lima", vals.Get("addresses.0.city"))
	assert.NotContains(t, vals, "addresses.1.city")
}

func TestApplyListAction_RemoveUnknownKey(t *testing.T) {
	vals := url.Values{"tags.0": {"a"}, ActionRemove: {"tags:9"}}
	require.True(t, ApplyListAction(vals))
	assert.Equal(t, "a", vals.Get("tags.0"))
}
