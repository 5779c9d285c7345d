package config

// 构建时通过 -ldflags 注入
var (
	Version    string = "dev"
	CommitHash string = ""
	BuildTime  string = ""
)

// IsProduction 判断是否为生产环境
func IsProduction() bool {
	return Version != "dev" && CommitHash != ""
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}
