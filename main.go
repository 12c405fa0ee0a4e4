package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// @title Finpalette API
// @version 1.0
// @description 家庭记账数据服务：游客本地记账、登录后导入个人账本、多人共享账本
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	// Version 构建时通过 ldflags 写入
	Version = ""

	// CommitSHA 构建时通过 ldflags 写入
	CommitSHA = ""

	cli struct {
		Globals
		Version kong.VersionFlag `help:"显示版本信息" short:"v"`
		Commands
	}
)

func main() {
	ctx := kong.Parse(&cli,
		kong.Vars{
			"version": buildVersion(),
		},
		kong.Name("finpalette"),
		kong.Description("家庭记账数据服务"),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func buildVersion() string {
	if Version == "" {
		Version = "dev"
	}
	if CommitSHA == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, CommitSHA)
}
