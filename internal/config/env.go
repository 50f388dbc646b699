package config

import "github.com/joho/godotenv"

// LoadEnv loads variables from a .env file in the working directory.
// Variables already present in the environment are not overwritten.
// The returned error satisfies os.IsNotExist when there is no .env file.
func LoadEnv() error {
	return godotenv.Load()
}
