package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"0.01", "0.01", true},
		{"0", "", false},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if got.String() != tc.out {
				t.Fatalf("%q: got %s, want %s", tc.in, got, tc.out)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestParseOptionalAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"200", "200"},
		{"15,5", "15.5"},
		{"", "0"},
		{"garbage", "0"},
		{"-3", "0"},
	}
	for _, tc := range cases {
		if got := ParseOptionalAmount(tc.in); got.String() != tc.out {
			t.Fatalf("%q: got %s, want %s", tc.in, got, tc.out)
		}
	}
}
