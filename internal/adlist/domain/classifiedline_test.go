package domain

import "testing"

func TestClassifiedLine_ConstructorsAndVariant(t *testing.T) {
	if got := Skip().Variant; got != LineSkip {
		t.Errorf("Skip().Variant = %v, want LineSkip", got)
	}
	if got := Discard().Variant; got != LineDiscard {
		t.Errorf("Discard().Variant = %v, want LineDiscard", got)
	}
	if got := DomainLine("example.com"); got.Variant != LineDomain || got.Host != "example.com" {
		t.Errorf("DomainLine unexpected result: %+v", got)
	}
	if got := AbpBlockLine("example.com"); got.Variant != LineAbpBlock || got.Host != "example.com" {
		t.Errorf("AbpBlockLine unexpected result: %+v", got)
	}
	if got := AbpAllowLine("example.com"); got.Variant != LineAbpAllow || got.Host != "example.com" {
		t.Errorf("AbpAllowLine unexpected result: %+v", got)
	}
}

func TestClassifiedLine_Entry(t *testing.T) {
	cases := []struct {
		line     ClassifiedLine
		wantOK   bool
		wantKind EntryKind
	}{
		{DomainLine("example.com"), true, EntryDomain},
		{AbpBlockLine("example.com"), true, EntryABPBlock},
		{AbpAllowLine("example.com"), true, EntryABPAllow},
		{Skip(), false, 0},
		{Discard(), false, 0},
	}
	for _, tc := range cases {
		e, ok := tc.line.Entry()
		if ok != tc.wantOK {
			t.Errorf("Entry() ok = %v, want %v for variant %v", ok, tc.wantOK, tc.line.Variant)
			continue
		}
		if ok && e.Kind != tc.wantKind {
			t.Errorf("Entry() kind = %v, want %v", e.Kind, tc.wantKind)
		}
	}
}

func TestClassifiedLine_Entry_RejectsEmptyHost(t *testing.T) {
	if _, ok := DomainLine("").Entry(); ok {
		t.Errorf("expected Entry() to fail for empty host")
	}
}

func TestLineVariant_String(t *testing.T) {
	cases := []struct {
		v    LineVariant
		want string
	}{
		{LineSkip, "skip"},
		{LineDomain, "domain"},
		{LineAbpBlock, "abp-block"},
		{LineAbpAllow, "abp-allow"},
		{LineDiscard, "discard"},
		{LineVariant(99), "LineVariant(99)"},
	}
	for _, tc := range cases {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("LineVariant(%d).String() = %q, want %q", tc.v, got, tc.want)
		}
	}
}
