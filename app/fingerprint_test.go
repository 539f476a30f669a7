package app

import (
	"testing"
)

func TestDeckFingerprintOrderIndependent(t *testing.T) {
	base := []int64{10000, 23434538, 14558127, 24224830, 10000}
	permutations := [][]int64{
		{10000, 10000, 14558127, 23434538, 24224830},
		{24224830, 23434538, 14558127, 10000, 10000},
		{14558127, 10000, 24224830, 10000, 23434538},
	}

	want := DeckFingerprint(base)
	for _, perm := range permutations {
		if got := DeckFingerprint(perm); got != want {
			t.Fatalf("DeckFingerprint(%v) = %s, want %s", perm, got, want)
		}
	}
}

func TestDeckFingerprintDoesNotMutateInput(t *testing.T) {
	ids := []int64{3, 1, 2}
	DeckFingerprint(ids)
	if ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("DeckFingerprint mutated its input: %v", ids)
	}
}

func TestDeckFingerprintSensitivity(t *testing.T) {
	a := DeckFingerprint([]int64{1, 2, 3})
	b := DeckFingerprint([]int64{1, 2, 4})
	if a == b {
		t.Fatalf("distinct decks produced the same fingerprint %s", a)
	}

	// Copy counts matter: {1,1,2} and {1,2,2} are different decks.
	c := DeckFingerprint([]int64{1, 1, 2})
	d := DeckFingerprint([]int64{1, 2, 2})
	if c == d {
		t.Fatalf("distinct multisets produced the same fingerprint %s", c)
	}
}

func TestCardFingerprintCaseSensitive(t *testing.T) {
	// Card names are digested verbatim: case and whitespace variants are
	// separate cache entries.
	a := CardFingerprint("Ash Blossom & Joyous Spring")
	b := CardFingerprint("ash blossom & joyous spring")
	c := CardFingerprint(" Ash Blossom & Joyous Spring")
	if a == b || a == c {
		t.Fatalf("card name variants should produce distinct fingerprints")
	}

	if got := CardFingerprint("Maxx \"C\""); got != CardFingerprint("Maxx \"C\"") {
		t.Fatalf("identical names should produce identical fingerprints")
	}
}

func TestFingerprintShape(t *testing.T) {
	for _, fp := range []string{
		DeckFingerprint([]int64{1}),
		DeckFingerprint(nil),
		CardFingerprint("Infinite Impermanence"),
		CardFingerprint(""),
	} {
		if len(fp) != 64 {
			t.Fatalf("fingerprint %q has length %d, want 64 hex chars", fp, len(fp))
		}
	}
}
