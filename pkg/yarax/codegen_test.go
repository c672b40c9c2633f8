package yarax

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateDefaultRule(t *testing.T) {
	want := "rule my_rule : scanner threathawk {\n" +
		"\n" +
		"  meta:\n" +
		"    author = \"ThreatHawk\"\n" +
		"    version = \"1.0\"\n" +
		"\n" +
		"  strings:\n" +
		"    $hex_string = { E2 34 A1 C8 23 FB }\n" +
		"    $text_string = \"evil.exe\" nocase ascii\n" +
		"\n" +
		"  condition:\n" +
		"    $hex_string or $text_string\n" +
		"}"

	assert.Equal(t, want, Generate(DefaultRule()))
}

func TestGenerateHeader(t *testing.T) {
	tests := []struct {
		name   string
		header RuleHeader
		want   string
	}{
		{"plain", RuleHeader{Identifier: "r"}, "rule r {\n"},
		{"global", RuleHeader{IsGlobal: true, Identifier: "r"}, "global rule r {\n"},
		{"private", RuleHeader{IsPrivate: true, Identifier: "r"}, "private rule r {\n"},
		{"both with tags", RuleHeader{IsGlobal: true, IsPrivate: true, Identifier: "r", Tags: []string{"a", "b"}}, "global private rule r : a b {\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Generate(Rule{Header: tt.header})
			assert.Equal(t, tt.want+"}", out)
		})
	}
}

func TestGenerateMetaValues(t *testing.T) {
	r := Rule{
		Header: RuleHeader{Identifier: "m"},
		Meta: []MetaItem{
			{Key: "key", Type: MetaString, Value: "x"},
			{Key: "count", Type: MetaInteger, Value: 5},
			{Key: "score", Type: MetaInteger, Value: float64(70)},
			{Key: "enabled", Type: MetaBoolean, Value: true},
			{Key: "", Type: MetaString, Value: "no key"},
			{Key: "zero", Type: MetaInteger, Value: 0},
			{Key: "off", Type: MetaBoolean, Value: false},
			{Key: "blank", Type: MetaString, Value: ""},
		},
		Order: []Section{SectionMeta},
	}

	want := "rule m {\n" +
		"\n" +
		"  meta:\n" +
		"    key = \"x\"\n" +
		"    count = 5\n" +
		"    score = 70\n" +
		"    enabled = true\n" +
		"}"
	assert.Equal(t, want, Generate(r))
}

func TestGenerateLargeIntegerMeta(t *testing.T) {
	r := Rule{
		Header: RuleHeader{Identifier: "big"},
		Meta: []MetaItem{
			{Key: "filesize", Type: MetaInteger, Value: float64(1000000)},
			{Key: "n", Type: MetaInteger, Value: 1234567},
			{Key: "ts", Type: MetaInteger, Value: float64(1700000000)},
		},
		Order: []Section{SectionMeta},
	}

	out := Generate(r)
	assert.Contains(t, out, "    filesize = 1000000\n")
	assert.Contains(t, out, "    n = 1234567\n")
	assert.Contains(t, out, "    ts = 1700000000\n")
	assert.NotContains(t, out, "e+")
}

func TestGenerateMetaHeaderWithoutItems(t *testing.T) {
	r := Rule{
		Header: RuleHeader{Identifier: "m"},
		Meta:   []MetaItem{{Key: "", Type: MetaString, Value: ""}},
		Order:  []Section{SectionMeta},
	}
	assert.Equal(t, "rule m {\n\n  meta:\n}", Generate(r))
}

func TestGenerateStringKindsAndModifiers(t *testing.T) {
	all := Modifiers{Nocase: true, ASCII: true, Wide: true, Fullword: true, Private: true, Xor: XorRange{Enabled: true, Min: 1, Max: 16}}
	r := Rule{
		Header: RuleHeader{Identifier: "s"},
		Strings: []StringItem{
			{Identifier: "$t", Kind: KindText, Value: "abc", Modifiers: all},
			{Identifier: "$h", Kind: KindHex, Value: "{ 4D 5A }"},
			{Identifier: "$r", Kind: KindRegexp, Value: `md5: [0-9a-f]{32}`, Modifiers: Modifiers{Wide: true, Nocase: true}},
			{Identifier: "$empty", Kind: KindText, Value: ""},
			{Identifier: "", Kind: KindText, Value: "anon"},
			{Identifier: "$b64", Kind: KindText, Value: "cmd", Modifiers: Modifiers{Base64: Base64Option{Enabled: true}}},
		},
		Order: []Section{SectionStrings},
	}

	want := "rule s {\n" +
		"\n" +
		"  strings:\n" +
		"    $t = \"abc\" nocase ascii wide fullword private xor(1-16)\n" +
		"    $h = { 4D 5A }\n" +
		"    $r = /md5: [0-9a-f]{32}/ nocase wide\n" +
		"    $b64 = \"cmd\"\n" +
		"}"
	assert.Equal(t, want, Generate(r))
}

func TestGenerateSectionOrder(t *testing.T) {
	r := DefaultRule()
	r.Order = []Section{SectionCondition, SectionStrings, SectionMeta}
	out := Generate(r)

	cond := strings.Index(out, "  condition:")
	str := strings.Index(out, "  strings:")
	meta := strings.Index(out, "  meta:")
	assert.True(t, cond < str && str < meta, out)

	r.Order = []Section{SectionCondition}
	out = Generate(r)
	assert.NotContains(t, out, "meta:")
	assert.NotContains(t, out, "strings:")
}

func TestGenerateEmptyCondition(t *testing.T) {
	r := Rule{Header: RuleHeader{Identifier: "e"}, Order: DefaultSectionOrder()}
	assert.Equal(t, "rule e {\n\n  condition:\n    \n}", Generate(r))
}

func TestGenerateNoOrderEmitsOnlyHeader(t *testing.T) {
	r := DefaultRule()
	r.Order = nil
	assert.Equal(t, "rule my_rule : scanner threathawk {\n}", Generate(r))
}

func TestFormatModifiersEmpty(t *testing.T) {
	assert.Equal(t, "", FormatModifiers(Modifiers{}))
	assert.Equal(t, " xor(0-255)", FormatModifiers(Modifiers{Xor: XorRange{Enabled: true, Max: 255}}))
}
