// Package config provides configuration management for the memory match game.
//
// The config package handles:
//   - Loading settings from defaults, an optional YAML/JSON file and the environment
//   - Settings validation
//   - Default difficulty management
//   - The difficulty catalog served to clients
//
// Configuration Format:
//
// Any file format viper understands works; YAML is the usual choice:
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	log:
//	  level: debug
//	game:
//	  reveal_delay: 1s
//	  default_difficulty: medium
//	  symbols: ["A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"]
//
// Every key can be overridden with a MEMORY_ prefixed variable, dots
// replaced by underscores (MEMORY_GAME_REVEAL_DELAY=500ms).
//
// Usage:
//
//	manager, err := config.NewManager("memory.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	difficulty := manager.DefaultDifficulty()
//	opts := manager.EngineOptions()
//
// Validation:
//
// Settings are checked for:
//   - A valid listen port and log level
//   - Positive reveal delay, tick interval and session TTL
//   - A known default difficulty
//   - Exactly twelve distinct, non-empty card symbols
package config
