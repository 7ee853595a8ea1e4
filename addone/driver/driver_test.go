package driver

import (
	"context"
	"regexp"
	"testing"

	"github.com/netsnapshot/netsnapshot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDescriptor = `
name: sample_os
description: Sample OS
vendor: Sample
version: "0.1"
config_command: show config
commands:
  - show version
  - show config
  - " show version "
attributes:
  - name: image
    title: Boot image
    level: DEVICE
    type: TEXT
    checkable: true
  - name: banner
    level: CONFIG
    type: LONGTEXT
`

type sampleDriver struct{ d *Descriptor }

func (s sampleDriver) Descriptor() *Descriptor { return s.d }

func (s sampleDriver) Snapshot(context.Context, Helper, Outputs) error { return nil }

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor([]byte(sampleDescriptor))
	require.NoError(t, err)

	assert.Equal(t, "sample_os", d.Name)
	assert.Equal(t, []string{"show config", "show version"}, d.PollCommands())
	require.Len(t, d.Attributes, 2)
	assert.Equal(t, model.LevelConfig, d.Attributes[1].Level)
	assert.True(t, d.Attributes[0].Checkable)
	assert.False(t, d.Attributes[1].Checkable)
}

func TestParseDescriptorInvalid(t *testing.T) {
	cases := map[string]string{
		"no name":    "description: x\n",
		"bad level":  "name: a\nattributes:\n  - name: x\n    level: GLOBAL\n    type: TEXT\n",
		"bad type":   "name: a\nattributes:\n  - name: x\n    level: DEVICE\n    type: DATE\n",
		"empty attr": "name: a\nattributes:\n  - level: DEVICE\n    type: TEXT\n",
		"not yaml":   "name: [a\n",
	}
	for name, body := range cases {
		_, err := ParseDescriptor([]byte(body))
		assert.Error(t, err, name)
	}
	assert.Panics(t, func() { MustDescriptor([]byte("description: x\n")) })
}

func TestRegistry(t *testing.T) {
	d, err := ParseDescriptor([]byte(sampleDescriptor))
	require.NoError(t, err)
	Register(sampleDriver{d})

	got, ok := Get("sample_os")
	require.True(t, ok)
	assert.Equal(t, "Sample OS", got.Descriptor().Description)
	_, ok = Get("missing_os")
	assert.False(t, ok)

	names := make([]string, 0)
	for _, desc := range List() {
		names = append(names, desc.Name)
	}
	assert.Contains(t, names, "sample_os")

	s, ok := Schemas().Lookup("sample_os")
	require.True(t, ok)
	assert.Equal(t, "Sample OS", s.Description())
	assert.Len(t, s.Attributes(), 2)
	_, ok = Schemas().Lookup("missing_os")
	assert.False(t, ok)
}

func TestOutputsGet(t *testing.T) {
	out := Outputs{"Show Version ": "v1"}

	assert.Equal(t, "v1", out.Get("show version"))
	assert.Empty(t, out.Get("show inventory"))
}

func TestSections(t *testing.T) {
	cfg := "interface Gi0/1\n description a\n vrf forwarding X\n!\nrouter ospf 1\n network 0.0.0.0\ninterface Gi0/2\r\n shutdown\r\n"
	got := Sections(cfg, regexp.MustCompile(`^interface (\S+)`))

	assert.Equal(t, map[string][]string{
		"Gi0/1": {"description a", "vrf forwarding X"},
		"Gi0/2": {"shutdown"},
	}, got)
}
