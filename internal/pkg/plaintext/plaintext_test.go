package plaintext

import "testing"

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "just a sentence", "just a sentence"},
		{"Empty", "", ""},
		{"WhitespaceOnly", "   \n\t ", ""},
		{"Bold", "chose the **risky** option", "chose the risky option"},
		{"Emphasis", "it was _fine_ in the end", "it was fine in the end"},
		{"Heading", "# Monday\nrough start", "Monday rough start"},
		{"Link", "read [the postmortem](https://example.com/pm) twice", "read the postmortem twice"},
		{"List", "- call mum\n- ship the fix", "call mum ship the fix"},
		{"InlineCode", "ran `terraform apply` too early", "ran terraform apply too early"},
		{"FencedCode", "before\n```\nrm -rf build\n```\nafter", "before rm -rf build after"},
		{"Strikethrough", "~~not~~ my fault", "not my fault"},
		{"CollapsesWhitespace", "too   many\n\n\nblank    lines", "too many blank lines"},
		{"BlocksDoNotFuse", "first paragraph\n\nsecond paragraph", "first paragraph second paragraph"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Extract(tc.in); got != tc.want {
				t.Errorf("Extract(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
