package snowflake

import (
	"testing"
	"time"
)

func TestMaxNodeID(t *testing.T) {
	if MaxNodeID != 1020 {
		t.Errorf("MaxNodeID = %d, want 1020", MaxNodeID)
	}
	if MaxSequence != 4095 {
		t.Errorf("MaxSequence = %d, want 4095", MaxSequence)
	}
}

func TestStandardLayoutPack(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		node int64
		seq  uint64
		want ID
	}{
		{"FirstInMillisecond", 1, 5, 0, 4214784},
		{"SecondInMillisecond", 1, 5, 1, 4214785},
		{"Zero", 0, 0, 0, 0},
		{"MaxFields", 1, MaxNodeID, MaxSequence, ID(1<<22 | 1020<<12 | 4095)},
		{"SequenceMasked", 1, 0, 4096, ID(1 << 22)},
		{"NodeMasked", 0, 1024 + 3, 0, ID(3 << 12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StandardLayout.Pack(tt.ms, tt.node, tt.seq)
			if got != tt.want {
				t.Errorf("Pack(%d, %d, %d) = %d, want %d", tt.ms, tt.node, tt.seq, got, tt.want)
			}
		})
	}
}

func TestStandardLayoutDecode(t *testing.T) {
	ms := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	id := StandardLayout.Pack(ms-Epoch, 917, 321)

	if got := id.Millis(); got != ms {
		t.Errorf("Millis() = %d, want %d", got, ms)
	}
	if got := id.Timestamp(); !got.Equal(time.UnixMilli(ms)) {
		t.Errorf("Timestamp() = %v, want %v", got, time.UnixMilli(ms))
	}
	if got := id.Node(); got != 917 {
		t.Errorf("Node() = %d, want 917", got)
	}
	if got := id.Seq(); got != 321 {
		t.Errorf("Seq() = %d, want 321", got)
	}
	if id < 0 {
		t.Errorf("packed ID %d is negative", id)
	}
}

func TestNoNodeLayout(t *testing.T) {
	id := NoNodeLayout.Pack(7, 99, 1023)
	if want := ID(7<<10 | 1023); id != want {
		t.Fatalf("Pack = %d, want %d", id, want)
	}
	if got := NoNodeLayout.Node(id); got != 0 {
		t.Errorf("Node() = %d, want 0", got)
	}
	if got := NoNodeLayout.Sequence(id); got != 1023 {
		t.Errorf("Sequence() = %d, want 1023", got)
	}
	if got := NoNodeLayout.Millis(id); got != Epoch+7 {
		t.Errorf("Millis() = %d, want %d", got, Epoch+7)
	}
	if got := NoNodeLayout.MaxSequence(); got != 1023 {
		t.Errorf("MaxSequence() = %d, want 1023", got)
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		in      string
		want    Layout
		wantErr bool
	}{
		{"", StandardLayout, false},
		{"standard", StandardLayout, false},
		{"nonode", NoNodeLayout, false},
		{"wide", Layout{}, true},
	}
	for _, tt := range tests {
		got, err := ParseLayout(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLayout(%q) = %v, %v", tt.in, got, err)
		}
	}
	if s := NoNodeLayout.String(); s != "nonode" {
		t.Errorf("NoNodeLayout.String() = %q", s)
	}
}
