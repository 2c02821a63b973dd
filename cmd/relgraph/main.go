// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/pkg/logging"
	"github.com/AleutianAI/relgraph/services/engine/config"
)

// cfg is loaded once before any command runs.
var (
	cfg      config.Config
	cfgPath  string
	dataPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to the YAML config file (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "",
		"path to a YAML dataset file of entities, relationships, and signals")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logger := logging.New(logging.Config{
			Level:   logging.ParseLevel(cfg.Logging.Level),
			Service: "relgraph",
			JSON:    cfg.Logging.Format == "json",
		})
		logger.Install()
		return nil
	}
}
