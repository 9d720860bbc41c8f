package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name {
			return true
		}
	}
	return false
}

func TestRootCmd_RegistersDomainSubcommands(t *testing.T) {
	assert.True(t, findCommand("ingest"), "ingest command not registered")
	assert.True(t, findCommand("search"), "search command not registered")
	assert.True(t, findCommand("pack"), "pack command not registered")
}

func TestIngestCmd_RequiresArgsOrWatchDir(t *testing.T) {
	ingestWatchDir = ""
	err := runIngest(ingestCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch-dir")
}

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"boots.jpg", true},
		{"boots.JPEG", true},
		{"jacket.png", true},
		{"notes.txt", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isImageFile(tt.name), tt.name)
	}
}

func TestResolveConstraints_UnknownPreset(t *testing.T) {
	packPreset = "not_a_real_preset"
	packMaxWeight = 0
	defer func() { packPreset = ""; packMaxWeight = 0 }()

	_, err := resolveConstraints()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preset")
}

func TestResolveConstraints_NoPresetNoWeightIsError(t *testing.T) {
	packPreset = ""
	packMaxWeight = 0

	_, err := resolveConstraints()
	require.Error(t, err)
}

func TestResolveConstraints_PresetAppliesKnownWeightCap(t *testing.T) {
	packPreset = "carry_on_luggage"
	packMaxWeight = 0
	defer func() { packPreset = "" }()

	constraints, err := resolveConstraints()
	require.NoError(t, err)
	assert.Equal(t, 7000, constraints.MaxWeightGrams)
}

func TestResolveConstraints_MaxWeightOverridesPreset(t *testing.T) {
	packPreset = "carry_on_luggage"
	packMaxWeight = 5000
	defer func() { packPreset = ""; packMaxWeight = 0 }()

	constraints, err := resolveConstraints()
	require.NoError(t, err)
	assert.Equal(t, 5000, constraints.MaxWeightGrams)
}

func TestParseContainers_ValidSpecs(t *testing.T) {
	containers, err := parseContainers([]string{"drone-a:2000", "drone-b:3500"})
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, "drone-a", containers[0].ContainerID)
	assert.Equal(t, 2000, containers[0].MaxWeightGrams)
	assert.Equal(t, "drone-b", containers[1].ContainerID)
	assert.Equal(t, 3500, containers[1].MaxWeightGrams)
}

func TestParseContainers_MissingColonIsError(t *testing.T) {
	_, err := parseContainers([]string{"drone-a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected name:max_weight_grams")
}

func TestParseContainers_NonPositiveWeightIsError(t *testing.T) {
	_, err := parseContainers([]string{"drone-a:0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive integer")

	_, err = parseContainers([]string{"drone-a:not-a-number"})
	require.Error(t, err)
}

func TestDiversityConstraints_NoWeightCapRequired(t *testing.T) {
	packPreset = ""
	packMaxWeight = 0

	constraints, err := diversityConstraints()
	require.NoError(t, err)
	assert.Equal(t, 0, constraints.MaxWeightGrams)
}

func TestDiversityConstraints_UnknownPreset(t *testing.T) {
	packPreset = "not_a_real_preset"
	defer func() { packPreset = "" }()

	_, err := diversityConstraints()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preset")
}

func TestResolveConstraints_MaxWeightWithoutPreset(t *testing.T) {
	packPreset = ""
	packMaxWeight = 3000
	defer func() { packMaxWeight = 0 }()

	constraints, err := resolveConstraints()
	require.NoError(t, err)
	assert.Equal(t, 3000, constraints.MaxWeightGrams)
}
