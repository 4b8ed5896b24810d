// Copyright 2025 The GQC Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/selbybotany/gqc/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
