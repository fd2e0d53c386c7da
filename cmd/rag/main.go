// Package main is the entry point for the Sentinel RAG Service.
//
//	@title			Sentinel RAG API
//	@version		1.0
//	@description	基于向量检索与大模型的文档问答服务
//	@termsOfService	https://github.com/kart-io/sentinel-rag
//
//	@contact.name	Sentinel Team
//	@contact.url	https://github.com/kart-io/sentinel-rag
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8000
//	@BasePath	/
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/sentinel-rag/cmd/rag/app"
)

func main() {
	app.NewApp().Run()
}
