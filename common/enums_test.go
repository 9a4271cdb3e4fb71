package common

import (
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestErrorPolicy(t *testing.T) {
	tests := []struct {
		name   string
		want   ErrorPolicy
		atomic bool
	}{
		{"fail-fast", ErrorPolicyFailFast, false},
		{"atomic", ErrorPolicyAtomic, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseErrorPolicy(tt.name)
			if err != nil {
				t.Fatalf("ParseErrorPolicy() error = %v", err)
			}
			if p != tt.want || p.String() != tt.name || p.Atomic() != tt.atomic {
				t.Errorf("unexpected policy %d (%s), atomic %v", p, p, p.Atomic())
			}
		})
	}

	if _, err := ParseErrorPolicy("rollback"); err == nil {
		t.Error("expected error for unknown policy")
	}
	if ErrorPolicy(7).IsValid() {
		t.Error("out of range policy reported as valid")
	}
}

func TestErrorPolicy_YAML(t *testing.T) {
	var v struct {
		Policy ErrorPolicy `yaml:"policy"`
	}
	if err := yaml.Unmarshal([]byte("policy: atomic\n"), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.Policy != ErrorPolicyAtomic {
		t.Errorf("Policy = %s, want atomic", v.Policy)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != "policy: atomic\n" {
		t.Errorf("Marshal() = %q", data)
	}

	if err := yaml.Unmarshal([]byte("policy: sometimes\n"), &v); err == nil {
		t.Error("expected error for unknown policy")
	}
}
