package subnet

import "testing"

func TestExtractAddress(t *testing.T) {
	cases := map[string]string{
		"10.0.0.1:8000":                "10.0.0.1:8000",
		"http://192.168.1.20:9000/api": "192.168.1.20:9000",
		"module@127.0.0.1:4000":        "127.0.0.1:4000",
	}

	for raw, want := range cases {
		got, err := ExtractAddress(raw)
		if err != nil {
			t.Errorf("ExtractAddress(%q): %v", raw, err)
			continue
		}

		if got != want {
			t.Errorf("ExtractAddress(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestExtractAddressRejects(t *testing.T) {
	for _, raw := range []string{"", "None:None", "localhost:8000", "300.1.1.1:80", "1.2.3.4:0", "1.2.3.4:70000"} {
		if got, err := ExtractAddress(raw); err == nil {
			t.Errorf("ExtractAddress(%q) = %q, expected error", raw, got)
		}
	}
}

func TestUIDs(t *testing.T) {
	miners := []Miner{{UID: 3}, {UID: 1}, {UID: 2}}

	uids := UIDs(miners)

	want := []UID{3, 1, 2}
	for i := range want {
		if uids[i] != want[i] {
			t.Errorf("uids[%d] = %d, want %d", i, uids[i], want[i])
		}
	}
}
