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
	"github.com/dawn-network/node/crypto"
)

var keygenForce bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new node identity (an existing one is kept unless --force is given)",
	RunE:  runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML/JSON config file")
	keygenCmd.Flags().StringVar(&dataDir, "data-dir", "", "override the configured data directory")
	keygenCmd.Flags().BoolVar(&keygenForce, "force", false, "overwrite an existing identity")
}

func runKeygen(cmd *cobra.Command, args []string) error {
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

	keyStore, err := openKeyStorage(cfg.DataDir, cfg.Identity)
	if err != nil {
		return err
	}
	if keyStore.Exists(identityKeyID) && !keygenForce {
		return fmt.Errorf("identity already exists under %s (use --force to overwrite)", cfg.DataDir)
	}

	identity, err := crypto.NewIdentity()
	if err != nil {
		return err
	}
	if err := keyStore.Store(identityKeyID, identity.KeyPair); err != nil {
		return err
	}

	fmt.Printf("Generated node identity: %s\n", identity.NodeID())
	return nil
}
