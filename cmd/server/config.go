package main

type Config struct {
	Host      string `env:"HOST"`
	Port      int    `env:"PORT,default=3000"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	StaticDir string `env:"STATIC_DIR"`
}
