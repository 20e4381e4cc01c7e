package permission

import "testing"

var definedPermissions = []Permission{Follow, Comment, Write, Moderate, Admin}

func TestPermissionValuesAreDistinctBits(t *testing.T) {
	want := map[Permission]uint32{
		Follow:   1,
		Comment:  2,
		Write:    4,
		Moderate: 8,
		Admin:    16,
	}
	var seen uint32
	for perm, v := range want {
		if uint32(perm) != v {
			t.Fatalf("%s = %d, want %d", perm.Name(), uint32(perm), v)
		}
		if seen&v != 0 {
			t.Fatalf("bit %d overlaps", v)
		}
		seen |= v
	}
	if uint32(All) != seen {
		t.Fatalf("All = %d, want %d", uint32(All), seen)
	}
}

func TestAddRemoveAlgebra(t *testing.T) {
	masks := []Mask{0, 1, 3, 7, 15, 31, 0x20, 0xffffffff}
	for _, m := range masks {
		for _, p := range definedPermissions {
			added := Add(m, p)
			if !Has(added, p) {
				t.Fatalf("Has(Add(%#x, %s)) = false", uint32(m), p)
			}
			if Add(added, p) != added {
				t.Fatalf("Add is not idempotent for %#x/%s", uint32(m), p)
			}
			removed := Remove(added, p)
			if Has(removed, p) {
				t.Fatalf("Has(Remove(Add(%#x, %s))) = true", uint32(m), p)
			}
			if Remove(removed, p) != removed {
				t.Fatalf("Remove is not idempotent for %#x/%s", uint32(m), p)
			}
		}
	}
}

func TestHasRequiresEveryBit(t *testing.T) {
	m := Mask(Follow | Comment)
	if !m.Has(Follow | Comment) {
		t.Fatal("expected combined permission to be present")
	}
	if m.Has(Follow | Write) {
		t.Fatal("expected partial match to be rejected")
	}
}

func TestMaskValid(t *testing.T) {
	if !Mask(All).Valid() {
		t.Fatal("All should be valid")
	}
	if Mask(0x20).Valid() {
		t.Fatal("bit 5 is undefined")
	}
	if Permission(0).Valid() {
		t.Fatal("zero permission should be invalid")
	}
}

func TestParseAndFormatMask(t *testing.T) {
	tests := []struct {
		in   string
		want Mask
		out  string
	}{
		{"", 0, ""},
		{"FOLLOW", Mask(Follow), "FOLLOW"},
		{"write|follow", Mask(Follow | Write), "FOLLOW|WRITE"},
		{" ADMIN , moderate ", Mask(Moderate | Admin), "MODERATE|ADMIN"},
		{"FOLLOW|COMMENT|WRITE|MODERATE|ADMIN", Mask(All), "FOLLOW|COMMENT|WRITE|MODERATE|ADMIN"},
	}

	for _, tc := range tests {
		got, err := ParseMask(tc.in)
		if err != nil {
			t.Fatalf("ParseMask(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMask(%q) = %#x, want %#x", tc.in, uint32(got), uint32(tc.want))
		}
		if s := FormatMask(got); s != tc.out {
			t.Fatalf("FormatMask(%#x) = %q, want %q", uint32(got), s, tc.out)
		}
	}

	if _, err := ParseMask("FOLLOW|FLY"); err == nil {
		t.Fatal("expected unknown permission error")
	}
	if s := FormatMask(Mask(Follow) | 0x40); s != "FOLLOW|0x40" {
		t.Fatalf("unexpected format of undefined bits: %q", s)
	}
}

func TestParseNames(t *testing.T) {
	perms, err := ParseNames([]string{"follow", "Comment"})
	if err != nil {
		t.Fatalf("ParseNames error: %v", err)
	}
	if len(perms) != 2 || perms[0] != Follow || perms[1] != Comment {
		t.Fatalf("unexpected perms: %v", perms)
	}
	if _, err := ParseNames([]string{"nope"}); err == nil {
		t.Fatal("expected error for unknown name")
	}
}

func TestMaskPermissions(t *testing.T) {
	got := Mask(Follow | Write | Admin | 0x40).Permissions()
	want := []Permission{Follow, Write, Admin}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if Mask(0).Permissions() != nil {
		t.Fatal("empty mask must list no permissions")
	}
}
