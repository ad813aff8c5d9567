package internal

import "testing"

func TestHashNameDeterministic(t *testing.T) {
	names := []string{"", "x", "at:Put:", "parent", "+", "_IntAdd:"}
	for _, n := range names {
		a, b := HashName(n), HashName(n)
		if a != b {
			t.Errorf("HashName(%q) unstable: %d then %d", n, a, b)
		}
		if a == 0 {
			t.Errorf("HashName(%q) = 0", n)
		}
	}
}

func TestSelectorAssignForm(t *testing.T) {
	cases := []struct {
		name   string
		assign bool
	}{
		{"x:", true},
		{"x", false},
		{"at:Put:", false},
		{"+", false},
		{"parent:", true},
	}
	for _, c := range cases {
		sh := SelectorFor(c.name)
		if (sh.Assign != 0) != c.assign {
			t.Errorf("SelectorFor(%q).Assign = %d, want assign form %v", c.name, sh.Assign, c.assign)
		}
		if c.assign && sh.Assign != HashName(c.name[:len(c.name)-1]) {
			t.Errorf("SelectorFor(%q).Assign does not hash the base name", c.name)
		}
	}
}

func TestSelectorTableInterns(t *testing.T) {
	st := NewSelectorTable()
	a := st.Intern("greet")
	b := st.Intern("greet")
	if a != b {
		t.Errorf("Intern returned different hashes for one name: %v, %v", a, b)
	}
	if a.Regular != HashName("greet") {
		t.Errorf("interned hash %d does not match HashName %d", a.Regular, HashName("greet"))
	}
}
