package form

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_RequiredAndRules(t *testing.T) {
	elems := []*Element{
		{ID: "email", Label: Label("Email"), Required: true, Rules: []Rule{{Tag: "email"}}, Render: Input("email")},
		{ID: "phone", Rules: []Rule{{Tag: "e164", Message: "Use international format"}}, Render: Input("tel")},
		{ID: "nickname", Rules: []Rule{{Tag: "alpha"}}, Render: Input("text")},
	}

	errs := Validate(elems, url.Values{"phone": {"555"}})
	assert.Equal(t, map[string][]string{
		"email": {"Email is required"},
		"phone": {"Use international format"},
	}, errs)

	errs = Validate(elems, url.Values{"email": {"nope"}, "phone": {"+15550001111"}})
	assert.Equal(t, map[string][]string{"email": {"Email failed 'email'"}}, errs)

	assert.Empty(t, Validate(elems, url.Values{"email": {"a@example.com"}}))
}

func TestValidate_Groups(t *testing.T) {
	elems := []*Element{{ID: "profile", Nest: []*Element{
		{ID: "profile.first", Required: true, Render: Input("text")},
	}}}
	errs := Validate(elems, url.Values{})
	assert.Equal(t, []string{"profile.first is required"}, errs["profile.first"])
}

func TestValidate_Lists(t *testing.T) {
	elems := []*Element{
		{ID: "emails", IsList: true, Required: true, Rules: []Rule{{Tag: "email"}}, Render: Input("email")},
		{ID: "addresses", IsList: true, Nest: []*Element{
			{ID: "city", Required: true, Render: Input("text")},
		}},
	}

	errs := Validate(elems, url.Values{})
	assert.Equal(t, map[string][]string{"emails": {"emails is required"}}, errs)

	errs = Validate(elems, url.Values{
		"emails.0":         {"a@example.com"},
		"emails.1":         {"bad"},
		"addresses._keys":  {"0", "1"},
		"addresses.0.city": {"Lima"},
	})
	assert.Equal(t, map[string][]string{
		"emails.1":         {"emails failed 'email'"},
		"addresses.1.city": {"city is required"},
	}, errs)
}

func TestForm_ValidateStoresErrors(t *testing.T) {
	f := quietForm(&Element{ID: "code", Required: true, Render: Input("text")})
	assert.False(t, f.Validate())
	assert.Contains(t, render(t, f.Render()), "code is required")

	f.Values.Set("code", "123")
	assert.True(t, f.Validate())
}
