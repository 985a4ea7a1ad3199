// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

package parser

import (
	"sort"
	"strings"
	"testing"
)

const sampleZone = `$ORIGIN example.
@ 3600 IN SOA ns1.example. hostmaster.example. 1 3600 600 604800 3600
@ 3600 IN NS ns1.example.
foo 3600 IN NS ns1.foo.example.
foo 3600 IN NS ns2.foo.example.
bar 3600 IN NS ns1.bar.example.
xn--mller-kva 3600 IN NS ns1.xn--mller-kva.example.
sub.foo 3600 IN A 192.0.2.1
`

func TestStreamExtractsOwnerSLDsWithoutDeduplicating(t *testing.T) {
	var got []string
	stats, err := Stream(strings.NewReader(sampleZone), "example", nil, func(label string) {
		got = append(got, label)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	// "foo" appears via two NS records and is emitted both times; dedup is
	// the caller's job, not Stream's.
	sort.Strings(got)
	want := []string{"bar", "foo", "foo", "xn--mller-kva"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got labels %v, want %v", got, want)
	}
	if stats.LabelsEmitted != int64(len(want)) {
		t.Errorf("LabelsEmitted = %d, want %d", stats.LabelsEmitted, len(want))
	}
}

func TestStreamRejectsThirdLevelAndApexNames(t *testing.T) {
	var got []string
	_, err := Stream(strings.NewReader(sampleZone), "example", nil, func(label string) {
		got = append(got, label)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	for _, l := range got {
		if l == "" || strings.Contains(l, ".") {
			t.Errorf("unexpected owner-name label leaked through: %q", l)
		}
	}
}

func TestExtractSLD(t *testing.T) {
	cases := []struct {
		owner   string
		tld     string
		want    string
		wantOK  bool
	}{
		{"foo.example.", "example", "foo", true},
		{"FOO.EXAMPLE.", "example", "foo", true},
		{"example.", "example", "", false},
		{"sub.foo.example.", "example", "", false},
		{"xn--mller-kva.example.", "example", "xn--mller-kva", true},
		{"-bad.example.", "example", "", false},
	}

	for _, c := range cases {
		got, ok := extractSLD(c.owner, c.tld)
		if ok != c.wantOK || got != c.want {
			t.Errorf("extractSLD(%q, %q) = (%q, %v), want (%q, %v)", c.owner, c.tld, got, ok, c.want, c.wantOK)
		}
	}
}
