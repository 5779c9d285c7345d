package main

import (
	_ "github.com/anoixa/image-gallery/docs"

	"github.com/anoixa/image-gallery/cmd"
)

// @title        Image Gallery API
// @version      1.0
// @description  Upload, search, share and delete images backed by object storage and a metadata store.
// @BasePath     /api
func main() {
	cmd.Execute()
}
