package config

import (
	"os"
	"strings"
)

var envReplacer = strings.NewReplacer(".", "_")

// setEnv exports env, keeping variables already set unless override is true.
func setEnv(env map[string]string, override bool) {
	for k, v := range env {
		if _, set := os.LookupEnv(k); set && !override {
			continue
		}
		os.Setenv(k, v)
	}
}
