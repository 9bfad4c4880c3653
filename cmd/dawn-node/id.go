// Copyright (C) 2025 dawn-network
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dawn-network/node/config"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Print the node identity, generating one if none exists",
	RunE:  runID,
}

func init() {
	rootCmd.AddCommand(idCmd)
	idCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML/JSON config file")
	idCmd.Flags().StringVar(&dataDir, "data-dir", "", "override the configured data directory")
}

func runID(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	identity, _, err := loadOrCreateIdentity(cfg.DataDir, cfg.Identity)
	if err != nil {
		return err
	}
	fmt.Println(identity.NodeID())
	return nil
}
