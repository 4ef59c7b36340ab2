package sales

import "testing"

func TestDataPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       DataPoint
		wantErr bool
	}{
		{name: "valid", p: DataPoint{Month: "Jan", Sales: 1, Revenue: 2}},
		{name: "zero figures", p: DataPoint{Month: "Jan"}},
		{name: "missing month", p: DataPoint{Sales: 1}, wantErr: true},
		{name: "negative sales", p: DataPoint{Month: "Jan", Sales: -1}, wantErr: true},
		{name: "negative revenue", p: DataPoint{Month: "Jan", Revenue: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSamples(t *testing.T) {
	got := Samples()
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	if got[0].Month != "Jan" || got[0].Sales != 100 || got[0].Revenue != 1500 {
		t.Errorf("first = %+v", got[0])
	}
	if got[5].Month != "Jun" || got[5].Sales != 200 || got[5].Revenue != 3000 {
		t.Errorf("last = %+v", got[5])
	}
}
