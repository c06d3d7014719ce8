package bench

import "testing"

func TestRunAllCollectsSortedEntries(t *testing.T) {
	programs := []Program{
		{Name: "three-instr", Source: "ADDI $r1, $r0, 1\nADDI $r2, $r0, 2\nADD $r3, $r1, $r2\n"},
		{Name: "one-instr", Source: "ADDI $r1, $r0, 1\n"},
		{Name: "bad-mnemonic", Source: "NOPE $r1, $r0, 1\n"},
	}

	r := NewRunner(2)
	r.RunAll(programs, false)

	checked, failed := r.Stats()
	if checked != 3 {
		t.Errorf("checked = %d, want 3", checked)
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	entries := r.Results.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[len(entries)-1].Err == nil {
		t.Error("expected the failed program to sort last")
	}
	if entries[0].Name != "one-instr" {
		t.Errorf("fastest entry = %q, want %q", entries[0].Name, "one-instr")
	}
}

func TestTableLenReflectsAdds(t *testing.T) {
	tbl := NewTable()
	if tbl.Len() != 0 {
		t.Fatalf("new table len = %d, want 0", tbl.Len())
	}
	tbl.Add(Entry{Name: "a"})
	tbl.Add(Entry{Name: "b"})
	if tbl.Len() != 2 {
		t.Errorf("len = %d, want 2", tbl.Len())
	}
}
