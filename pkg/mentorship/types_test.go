package mentorship

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDecimal_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    Decimal
		wantErr bool
	}{
		{input: `"4.50"`, want: 4.5},
		{input: `3`, want: 3},
		{input: `null`, want: 0},
		{input: `""`, want: 0},
		{input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Decimal
			err := json.Unmarshal([]byte(tt.input), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d != tt.want {
				t.Errorf("Decimal = %v, want %v", d, tt.want)
			}
		})
	}
}

func TestMentorProfile_HasExpertise(t *testing.T) {
	m := MentorProfile{ExpertiseAreas: []string{"Machine Learning", "DevOps"}}
	if !m.HasExpertise("devops") {
		t.Error("HasExpertise(devops) = false")
	}
	if m.HasExpertise("Finance") {
		t.Error("HasExpertise(Finance) = true")
	}
}

func TestMentorApplication_Expertise(t *testing.T) {
	app := NewMentorApplication()
	if app.MentoringCapacity != 3 {
		t.Errorf("MentoringCapacity = %d, want 3", app.MentoringCapacity)
	}

	app.AddExpertise("DevOps")
	app.AddExpertise(" DevOps ")
	app.AddExpertise("")
	app.AddExpertise("Finance")
	if want := []string{"DevOps", "Finance"}; !reflect.DeepEqual(app.ExpertiseAreas, want) {
		t.Errorf("ExpertiseAreas = %v, want %v", app.ExpertiseAreas, want)
	}

	app.RemoveExpertise("DevOps")
	if want := []string{"Finance"}; !reflect.DeepEqual(app.ExpertiseAreas, want) {
		t.Errorf("after remove = %v, want %v", app.ExpertiseAreas, want)
	}
}
