// Copyright (C) 2026 Toitware ApS. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_VersionRelease(t *testing.T) {
	var stdout bytes.Buffer
	cmd := VersionCmd(true)
	cmd.SetArgs([]string{})
	cmd.SetOut(&stdout)
	require.NoError(t, cmd.ExecuteContext(SetInfo(context.Background(), Info{Version: "v1.2.3", Date: "2026-10-18"})))
	assert.Equal(t, "autoupload version:\tv1.2.3\nBuild date:\t\t2026-10-18\n", stdout.String())
}
