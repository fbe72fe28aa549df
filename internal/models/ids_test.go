package models

import "testing"

func TestSynapseTypeSign(t *testing.T) {
	tests := []struct {
		name string
		typ  SynapseType
		want float64
	}{
		{"excitatory", Excitatory, 1},
		{"inhibitory", Inhibitory, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Sign(); got != tt.want {
				t.Errorf("Sign() = %v, want %v", got, tt.want)
			}
			if !tt.typ.Valid() {
				t.Errorf("Valid() = false for %q", tt.typ)
			}
		})
	}

	if SynapseType("bogus").Valid() {
		t.Error("Valid() = true for unknown type")
	}
}

func TestIDStrings(t *testing.T) {
	if got := NeuronID(7).String(); got != "n7" {
		t.Errorf("NeuronID.String() = %q, want n7", got)
	}
	if got := SynapseID(3).String(); got != "s3" {
		t.Errorf("SynapseID.String() = %q, want s3", got)
	}
	if PostSpike.String() != "post" || PreSpike.String() != "pre" {
		t.Error("SpikeSide.String() mismatch")
	}
}
