package stripe

import "testing"

func TestNormalizeEnv(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "", want: testEnv},
		{raw: "TEST", want: testEnv},
		{raw: " live ", want: liveEnv},
		{raw: "staging", wantErr: true},
	}

	for _, tc := range cases {
		got, err := normalizeEnv(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("normalizeEnv(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizeEnv(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := validateAPIKey(testEnv, "sk_test_123"); err != nil {
		t.Fatalf("test key in test env: %v", err)
	}
	if err := validateAPIKey(testEnv, "rk_test_123"); err != nil {
		t.Fatalf("restricted test key in test env: %v", err)
	}
	if err := validateAPIKey(testEnv, "sk_live_123"); err == nil {
		t.Fatal("live key must be rejected in test env")
	}
	if err := validateAPIKey(liveEnv, "sk_live_123"); err != nil {
		t.Fatalf("live key in live env: %v", err)
	}
	if err := validateAPIKey(liveEnv, "sk_test_123"); err == nil {
		t.Fatal("test key must be rejected in live env")
	}
}
