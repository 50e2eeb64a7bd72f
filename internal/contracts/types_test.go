package contracts

import (
	"testing"
	"time"
)

func TestDateKeyOf(t *testing.T) {
	tests := []struct {
		in   time.Time
		want int
	}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 20240101},
		{time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), 20241231},
		{time.Date(2020, 6, 5, 12, 0, 0, 0, time.UTC), 20200605},
	}

	for _, tt := range tests {
		if got := DateKeyOf(tt.in); got != tt.want {
			t.Errorf("DateKeyOf(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTimeKeyOf(t *testing.T) {
	tests := []struct {
		name  string
		in    time.Time
		grain Grain
		want  int
	}{
		{"midnight hourly", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), GrainHour, 0},
		{"last hour", time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), GrainHour, 23},
		{"midnight 5min", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), GrainFiveMinute, 0},
		{"00:05", time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC), GrainFiveMinute, 1},
		{"23:55", time.Date(2024, 1, 1, 23, 55, 0, 0, time.UTC), GrainFiveMinute, 287},
		{"12:30", time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC), GrainFiveMinute, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeKeyOf(tt.in, tt.grain); got != tt.want {
				t.Errorf("TimeKeyOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHourOfTimeKey(t *testing.T) {
	if got := HourOfTimeKey(287, GrainFiveMinute); got != 23 {
		t.Errorf("HourOfTimeKey(287, 5min) = %d, want 23", got)
	}
	if got := HourOfTimeKey(13, GrainHour); got != 13 {
		t.Errorf("HourOfTimeKey(13, hour) = %d, want 13", got)
	}
}

func TestGrainBucketCount(t *testing.T) {
	if GrainHour.BucketCount() != 24 {
		t.Errorf("hourly grain should have 24 buckets")
	}
	if GrainFiveMinute.BucketCount() != 288 {
		t.Errorf("5-minute grain should have 288 buckets")
	}
}

func TestDateWindowValidate(t *testing.T) {
	valid := DateWindow{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid window rejected: %v", err)
	}

	inverted := DateWindow{Start: valid.End, End: valid.Start}
	err := inverted.Validate()
	if err == nil {
		t.Fatal("inverted window accepted")
	}
	if !IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}

func TestDateWindowDays(t *testing.T) {
	w := DateWindow{
		Start: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}

	days := w.Days()
	if len(days) != 3 {
		t.Fatalf("expected 3 days (leap year), got %d", len(days))
	}
	if days[1].Day() != 29 {
		t.Errorf("expected Feb 29 in 2024, got %v", days[1])
	}
}

func TestParseDataset(t *testing.T) {
	for _, alias := range []string{"co2", "CO2Emis"} {
		ds, err := ParseDataset(alias)
		if err != nil || ds != DatasetCO2 {
			t.Errorf("ParseDataset(%q) = %v, %v", alias, ds, err)
		}
	}

	if _, err := ParseDataset("windspeed"); !IsConfigurationError(err) {
		t.Errorf("unknown dataset should be a ConfigurationError, got %v", err)
	}
}

func TestProductionRecordSums(t *testing.T) {
	r := RawProductionRecord{
		OffshoreWindLt100MW: 50,
		OffshoreWindGe100MW: 200,
		OnshoreWindLt50kW:   100,
		OnshoreWindGe50kW:   300,
		SolarLt10kW:         10,
		SolarGe10Lt40kW:     20,
		SolarGe40kW:         30,
		Hydro:               15,
		CentralPower:        400,
		LocalPower:          100,
	}

	if got := r.WindMWh(); got != 650 {
		t.Errorf("WindMWh() = %f, want 650", got)
	}
	if got := r.SolarMWh(); got != 60 {
		t.Errorf("SolarMWh() = %f, want 60", got)
	}
	if got := r.RenewableMWh(); got != 725 {
		t.Errorf("RenewableMWh() = %f, want 725", got)
	}
	if got := r.TotalMWh(); got != 1225 {
		t.Errorf("TotalMWh() = %f, want 1225", got)
	}
}
