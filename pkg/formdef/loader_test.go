package formdef

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	visexpr "github.com/goliatone/go-formflow/pkg/visibility/expr"
)

func mustLoad(t *testing.T, doc string, opts ...Option) *Form {
	t.Helper()

	form, err := Load([]byte(doc), "test.yaml", opts...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return form
}

func mustSession(t *testing.T, form *Form, opts ...flow.Option) *flow.Session {
	t.Helper()

	session, err := form.NewSession(opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func TestLoadFSSignupFixture(t *testing.T) {
	t.Parallel()

	form, err := LoadFS(testsupport.Forms(), testsupport.SignupForm)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}

	if form.ID != "signup" || form.Title != "Sign up" {
		t.Fatalf("unexpected header: id=%q title=%q", form.ID, form.Title)
	}
	if diff := cmp.Diff([]string{"name", "email", "age", "gender", "address", "city"}, form.Registry.Names()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	var steps []string
	for _, step := range form.Registry.Steps() {
		steps = append(steps, step.Name)
	}
	if diff := cmp.Diff([]string{"identity", "profile", "address"}, steps); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	email, _ := form.Registry.Field("email")
	if email.Label != "Email" {
		t.Fatalf("expected markup stripped from label, got %q", email.Label)
	}
	if email.Sticky == nil || email.Step != 0 {
		t.Fatalf("expected sticky email on first step, got %+v", email)
	}
	age, _ := form.Registry.Field("age")
	if age.Kind != flow.KindInteger || age.Step != 1 {
		t.Fatalf("unexpected age definition: %+v", age)
	}
}

func TestSignupSessionRevealsAndLatchesEmail(t *testing.T) {
	t.Parallel()

	form, err := LoadFS(testsupport.Forms(), testsupport.SignupForm)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	session := mustSession(t, form)

	if session.ActiveFields().Has("email") {
		t.Fatalf("email must start hidden")
	}

	if _, err := session.Set("name", "Alice"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !session.ActiveFields().Has("email") {
		t.Fatalf("email must appear once name is filled")
	}
	if session.CanAdvance() {
		t.Fatalf("step must stay blocked while email is empty")
	}

	if _, err := session.Set("email", "nope"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := session.Errors()["email"]; got != "must be a valid email" {
		t.Fatalf("unexpected email error %q", got)
	}

	if _, err := session.Set("email", "alice@example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !session.CanAdvance() {
		t.Fatalf("step must open once name and email are valid: %v", session.Errors())
	}

	if _, err := session.Set("name", ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !session.ActiveFields().Has("email") {
		t.Fatalf("sticky email must stay visible after name is cleared")
	}
	if session.Value("email") != "" {
		t.Fatalf("email must be reset when name changes, got %v", session.Value("email"))
	}
}

func TestAccountFixtureHidesBusinessStep(t *testing.T) {
	t.Parallel()

	form, err := LoadFS(testsupport.Forms(), testsupport.AccountForm)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	session := mustSession(t, form)

	if _, err := session.Set("userType", "personal"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !session.CanAdvance() {
		t.Fatalf("personal account must pass the first step: %v", session.Errors())
	}
	if session.StepVisible(1) {
		t.Fatalf("tax step must be hidden for personal accounts")
	}

	if _, err := session.Set("userType", "business"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if session.CanAdvance() {
		t.Fatalf("business account must provide a company name")
	}
	if !session.StepVisible(1) {
		t.Fatalf("tax step must be shown for business accounts")
	}

	if _, err := session.Set("vatNumber", "pt123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := session.Errors()["vatNumber"]; got != "does not match required pattern" {
		t.Fatalf("unexpected vat error %q", got)
	}
}

func TestLoadDirKeysFormsByID(t *testing.T) {
	t.Parallel()

	forms, err := LoadDir(testsupport.Forms())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	var ids []string
	for id := range forms {
		ids = append(ids, id)
	}
	if len(ids) != 2 || forms["signup"] == nil || forms["account"] == nil {
		t.Fatalf("unexpected forms: %v", ids)
	}
}

func TestLoadDirRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	doc := "id: dup\nsteps:\n  - fields:\n      - name: a\n"
	fsys := fstest.MapFS{
		"one.yaml":  {Data: []byte(doc)},
		"two.yml":   {Data: []byte(doc)},
		"README.md": {Data: []byte("ignored")},
	}
	_, err := LoadDir(fsys)
	if err == nil || !strings.Contains(err.Error(), `duplicate form "dup"`) {
		t.Fatalf("expected duplicate form error, got %v", err)
	}
}

func TestLoadFallsBackToFileNameForID(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"forms/contact.yaml": {Data: []byte("steps:\n  - fields:\n      - name: phone\n")},
	}
	form, err := LoadFS(fsys, "forms/contact.yaml")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if form.ID != "contact" {
		t.Fatalf("expected id from file name, got %q", form.ID)
	}
	if got := form.Registry.Steps()[0].Name; got != "step-1" {
		t.Fatalf("expected derived step name, got %q", got)
	}
}

func TestLoadRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want string
		is   error
	}{
		{name: "empty", doc: "  \n", want: "is empty"},
		{name: "garbage", doc: "{not: [valid", want: "invalid JSON or YAML"},
		{name: "no steps", doc: "id: x\n", want: "defines no steps"},
		{name: "empty step", doc: "steps:\n  - name: a\n", want: `step "a" has no fields`},
		{
			name: "unknown reference",
			doc:  "steps:\n  - fields:\n      - name: name\n      - name: email\n        visible_when: filled(nmae)\n",
			want: `references unknown field "nmae"`,
		},
		{
			name: "reserved value",
			doc:  "steps:\n  - fields:\n      - name: value\n      - name: code\n        sticky:\n          when: value == \"x\"\n",
			want: `field "value": name is reserved in rules`,
		},
		{
			name: "reserved extras",
			doc:  "steps:\n  - fields:\n      - name: extras\n",
			want: `field "extras": name is reserved in rules`,
		},
		{
			name: "value outside sticky",
			doc:  "steps:\n  - fields:\n      - name: email\n        visible_when: filled(value)\n",
			want: `references unknown field "value"`,
		},
		{
			name: "bad rule",
			doc:  "steps:\n  - fields:\n      - name: email\n        visible_when: name ==\n",
			want: "visibility/expr",
		},
		{
			name: "cycle",
			doc:  "steps:\n  - fields:\n      - name: a\n        dependents: [b]\n      - name: b\n        dependents: [a]\n",
			is:   flow.ErrCycle,
		},
		{
			name: "unknown dependent",
			doc:  "steps:\n  - fields:\n      - name: a\n        dependents: [z]\n",
			is:   flow.ErrUnknownField,
		},
		{
			name: "bad validate tag",
			doc:  "steps:\n  - fields:\n      - name: a\n        validate: not_a_real_tag\n",
			want: "not_a_real_tag",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load([]byte(tc.doc), "test.yaml")
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
		})
	}
}

func TestStickyWhenConditionBindsValue(t *testing.T) {
	t.Parallel()

	form := mustLoad(t, `
steps:
  - fields:
      - name: name
        dependents: [email]
      - name: email
        visible_when: filled(name)
        sticky:
          when: value endsWith "@corp.example"
`)
	session := mustSession(t, form)

	if _, err := session.Set("name", "Dana"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := session.Set("email", "dana@home.example"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if unlocked, _ := session.IsFieldUnlocked("email"); unlocked {
		t.Fatalf("non-corporate email must not unlock")
	}

	if _, err := session.Set("email", "dana@corp.example"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := session.Set("name", ""); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if unlocked, _ := session.IsFieldUnlocked("email"); !unlocked {
		t.Fatalf("corporate email must stay unlocked")
	}
}

func TestRuleRuntimeErrorHidesField(t *testing.T) {
	t.Parallel()

	form := mustLoad(t, `
steps:
  - fields:
      - name: age
        kind: integer
      - name: drink
        visible_when: age >= 18
`)
	session := mustSession(t, form)

	if session.ActiveFields().Has("drink") {
		t.Fatalf("rule failing on an unset number must hide the field")
	}
	if _, err := session.Set("age", 30); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !session.ActiveFields().Has("drink") {
		t.Fatalf("drink must show for adults")
	}
}

func TestWithExtrasAndEvaluator(t *testing.T) {
	t.Parallel()

	doc := `
steps:
  - fields:
      - name: email
      - name: audit
        visible_when: extras.role == "admin" || staff(email)
`
	eval := visexpr.New(visexpr.WithFunction("staff", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		return strings.HasSuffix(s, "@staff.example"), nil
	}))

	admin := mustSession(t, mustLoad(t, doc, WithExtras(map[string]any{"role": "admin"}), WithEvaluator(eval)))
	if !admin.ActiveFields().Has("audit") {
		t.Fatalf("admins must see audit")
	}

	guest := mustSession(t, mustLoad(t, doc, WithExtras(map[string]any{"role": "guest"}), WithEvaluator(eval)))
	if guest.ActiveFields().Has("audit") {
		t.Fatalf("guests must not see audit")
	}
	if _, err := guest.Set("email", "kim@staff.example"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !guest.ActiveFields().Has("audit") {
		t.Fatalf("staff emails must see audit")
	}
}

func TestIsDefinitionFile(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]bool{
		"a.yaml": true,
		"b.YML":  true,
		"c.json": true,
		"d.md":   false,
		"e":      false,
	} {
		if got := IsDefinitionFile(path); got != want {
			t.Fatalf("IsDefinitionFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLoadKeepsPlainTextPunctuation(t *testing.T) {
	t.Parallel()

	form := mustLoad(t, `
title: Terms & conditions
steps:
  - title: Who's there?
    fields:
      - name: name
        label: What's your name?
        help: Use "first & last" <b>name</b>
`)

	if form.Title != "Terms & conditions" {
		t.Fatalf("title escaped: %q", form.Title)
	}
	if got := form.Registry.Steps()[0].Title; got != "Who's there?" {
		t.Fatalf("step title escaped: %q", got)
	}
	field, _ := form.Registry.Field("name")
	if field.Label != "What's your name?" {
		t.Fatalf("label escaped: %q", field.Label)
	}
	if field.Help != `Use "first & last" name` {
		t.Fatalf("help not stripped to plain text: %q", field.Help)
	}
}
