package imaputf7

import "testing"

var encodeTests = []struct {
	in  string
	out string
}{
	{"", ""},
	{"INBOX", "INBOX"},
	{"Sent Items", "Sent Items"},
	{"&", "&-"},
	{"Lote & Co", "Lote &- Co"},
	{"a&b&c", "a&-b&-c"},
	{"Entwürfe", "Entw&APw-rfe"},
	{"日本語", "&ZeVnLIqe-"},
	{"ÿ", "&AP8-"},
	{"mixed ÿ end", "mixed &AP8- end"},
}

func TestEncode(t *testing.T) {
	for _, tc := range encodeTests {
		if got := Encode(tc.in); got != tc.out {
			t.Errorf("Encode(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

var decodeTests = []struct {
	in  string
	out string
}{
	{"", ""},
	{"abc", "abc"},
	{"&-", "&"},
	{"&-abc", "&abc"},
	{"abc&-", "abc&"},
	{"a&-b&-c", "a&b&c"},
	{"&AP8-", "ÿ"},
	{"&ZeVnLIqe-", "日本語"},
	{"Entw&APw-rfe", "Entwürfe"},

	// Fail-open cases: malformed escapes pass through with the '&' restored.
	{"&AAA", "&AAA"},      // unterminated escape
	{"&*-", "&*-"},        // invalid base64 alphabet
	{"&AA-", "&AA-"},      // odd number of UTF-16 bytes
	{"abc&", "abc&"},      // trailing bare ampersand
	{"&ZeVn&AP8-", "&ZeVnÿ"}, // first block unterminated, second valid
}

func TestDecode(t *testing.T) {
	for _, tc := range decodeTests {
		if got := Decode(tc.in); got != tc.out {
			t.Errorf("Decode(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"INBOX",
		"Sent Items",
		"&",
		"a & b & c",
		"Entwürfe",
		"收件箱",                   // Chinese inbox
		"回收站/已删除", // nested non-ASCII path
		"abc日本語def&x",
		"\U0001f4e7 mail",  // surrogate pair
		"tab\tand\x01ctl", // control characters are escaped too
	}

	for _, in := range inputs {
		if got := Decode(Encode(in)); got != in {
			t.Errorf("Decode(Encode(%q)) = %q, want it unchanged", in, got)
		}
	}
}
