/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcx-agency (VCX Agency Server) relays packed messages between agents. It holds every envelope for
// its recipient keys until the recipient polls for it.
package main

import (
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/spf13/cobra"

	"github.com/hyperledger/aries-vcx-go/cmd/vcx-agency/startcmd"
)

// This is an application which starts the agency on given port.
func main() {
	rootCmd := &cobra.Command{
		Use: "vcx-agency",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	logger := log.New("vcx/agency-server")

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatalf(err.Error())
	}

	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("Failed to run vcx-agency: %s", err)
	}
}
