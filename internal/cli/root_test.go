package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "attest", cmd.Use)
	assert.Contains(t, cmd.Long, "certificate")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"window", "bands", "band-cert", "gamma-tail", "prime-tail",
		"margin-cert", "rollup", "psd-cert", "sweep", "verify",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dpsFlag := cmd.PersistentFlags().Lookup("dps")
	require.NotNil(t, dpsFlag)
	assert.Equal(t, "0", dpsFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--format", "yaml", "verify", "nothing.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestWindowCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	winCmd, _, err := cmd.Find([]string{"window"})
	require.NoError(t, err)

	modeFlag := winCmd.Flags().Lookup("mode")
	require.NotNil(t, modeFlag)
	assert.Equal(t, "gauss", modeFlag.DefValue)
}

func TestBandCertCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	bcCmd, _, err := cmd.Find([]string{"band-cert"})
	require.NoError(t, err)

	tolFlag := bcCmd.Flags().Lookup("tol")
	require.NotNil(t, tolFlag)
	assert.Equal(t, "1E-12", tolFlag.DefValue)

	partsFlag := bcCmd.Flags().Lookup("max-parts")
	require.NotNil(t, partsFlag)
	assert.Equal(t, "4096", partsFlag.DefValue)
}

func TestPSDCertCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	psdCmd, _, err := cmd.Find([]string{"psd-cert"})
	require.NoError(t, err)

	gridFlag := psdCmd.Flags().Lookup("grid-A")
	require.NotNil(t, gridFlag)
	assert.Equal(t, "50", gridFlag.DefValue)

	mgridFlag := psdCmd.Flags().Lookup("mgrid")
	require.NotNil(t, mgridFlag)
	assert.Equal(t, "2049", mgridFlag.DefValue)
}
