// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/ballotbox/internal/sops"
)

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with config files",
		// Config files handled here may not be loadable yet
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
	}
	cmd.AddCommand(configEncryptCommand(), configDecryptCommand())
	return cmd
}

func configEncryptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <file>",
		Short: "Encrypt a config file with sops and write it to stdout",
		Long: fmt.Sprintf(
			"Encrypt a config file with sops. Master keys are taken from %s, %s and %s.",
			sops.EnvAgeRecipients,
			sops.EnvGcpKmsResourceId,
			sops.EnvAwsKmsKeyArns,
		),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			encrypted, err := sops.Encrypt(data)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(encrypted)
			return err
		},
	}
}

func configDecryptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <file>",
		Short: "Decrypt a sops-encrypted config file and write it to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			decrypted, err := sops.Decrypt(data)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(decrypted)
			return err
		},
	}
}
