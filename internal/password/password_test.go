package password

import (
	"strings"
	"testing"
)

// cheap parameters keep the suite fast
var testArgon2 = &Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashers_RoundTrip(t *testing.T) {
	hashers := map[string]Hasher{
		"bcrypt":   NewBcryptHasher(4),
		"argon2id": NewArgon2Hasher(testArgon2),
	}

	for name, h := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := h.Hash("correct horse")
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			if hash == "correct horse" {
				t.Fatal("hash equals plaintext")
			}

			ok, err := h.Verify("correct horse", hash)
			if err != nil || !ok {
				t.Fatalf("Verify(correct) = %v, %v; want true, nil", ok, err)
			}

			ok, err = h.Verify("wrong horse", hash)
			if err != nil || ok {
				t.Fatalf("Verify(wrong) = %v, %v; want false, nil", ok, err)
			}
		})
	}
}

func TestHashers_Salted(t *testing.T) {
	h := NewArgon2Hasher(testArgon2)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultBcryptCost},
		{2, DefaultBcryptCost},
		{12, 12},
		{99, 31},
	}
	for _, tt := range tests {
		if got := NewBcryptHasher(tt.in).cost; got != tt.want {
			t.Errorf("NewBcryptHasher(%d).cost = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMultiHasher_VerifiesBothSchemes(t *testing.T) {
	bc := NewBcryptHasher(4)
	ar := NewArgon2Hasher(testArgon2)

	bcHash, _ := bc.Hash("pw-one")
	arHash, _ := ar.Hash("pw-two")

	m := NewMultiHasher(bc)

	if ok, err := m.Verify("pw-one", bcHash); err != nil || !ok {
		t.Errorf("bcrypt hash: got %v, %v", ok, err)
	}
	if ok, err := m.Verify("pw-two", arHash); err != nil || !ok {
		t.Errorf("argon2 hash: got %v, %v", ok, err)
	}

	newHash, _ := m.Hash("pw-three")
	if !IsBcryptHash(newHash) {
		t.Errorf("primary bcrypt should produce bcrypt hashes, got %q", newHash)
	}
}

func TestMultiHasher_UnknownFormat(t *testing.T) {
	m := NewMultiHasher(NewBcryptHasher(4))

	for _, hash := range []string{"", "plaintext", "$1$md5$whatever"} {
		if _, err := m.Verify("x", hash); err != ErrUnknownHashFormat {
			t.Errorf("Verify(%q) error = %v, want ErrUnknownHashFormat", hash, err)
		}
	}
}

func TestArgon2_MalformedHash(t *testing.T) {
	h := NewArgon2Hasher(testArgon2)
	bad := []string{
		"$argon2id$v=19$m=1,t=1,p=1$salt",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$a2V5",
	}
	for _, hash := range bad {
		if _, err := h.Verify("x", hash); err == nil {
			t.Errorf("Verify(%q) should fail", hash)
		}
	}
}

func TestNew(t *testing.T) {
	m, err := New("argon2id", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.primary.(*Argon2Hasher); !ok {
		t.Errorf("primary = %T, want *Argon2Hasher", m.primary)
	}

	if _, err := New("md5", 0); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("New(md5) error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrRequired},
		{"short", "abc", ErrTooShort},
		{"exact", "abcdefgh", nil},
		{"multibyte counts runes", "ñññññññ", ErrTooShort},
		{"multibyte ok", "ññññññññ", nil},
		{"72 bytes", strings.Repeat("a", 72), nil},
		{"73 bytes", strings.Repeat("a", 73), ErrTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.in, 8); got != tt.want {
				t.Fatalf("Validate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
