// Copyright (c) 2025 Tigera, Inc. All rights reserved.
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

package commands

import (
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Config carries the environment overrides honoured by every command.
type Config struct {
	LogLevel string `default:"warning" split_words:"true"`
}

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "netkat",
	Short: "netkat compiles NetKAT policies to OpenFlow tables",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var config Config
		if err := envconfig.Process("netkat", &config); err != nil {
			log.WithError(err).Warn("Failed to parse environment config")
		}
		levelName := config.LogLevel
		if logLevelFlag != "" {
			// The command line wins over the environment.
			levelName = logLevelFlag
		}
		level, err := log.ParseLevel(levelName)
		if err != nil {
			level = log.WarnLevel
		}
		log.SetLevel(level)
	},
}

func init() {
	var fs *pflag.FlagSet = rootCmd.PersistentFlags()
	fs.StringVar(&logLevelFlag, "log-level", "", "Override the NETKAT_LOG_LEVEL environment setting")
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}
