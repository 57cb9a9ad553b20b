package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storacha/go-didauth/did"
	didgin "github.com/storacha/go-didauth/transport/gin"
	didhttp "github.com/storacha/go-didauth/transport/http"
)

func newRouter(svc *service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/1.0/identifiers/:did", svc.resolve)

	authed := r.Group("/", didgin.Middleware(svc.verifier, didhttp.WithRefresh()))
	authed.GET("/whoami", whoami)
	authed.POST("/verify", whoami)
	return r
}

func (svc *service) resolve(c *gin.Context) {
	id, err := did.Parse(c.Param("did"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_DID", "message": err.Error()})
		return
	}
	doc, err := svc.registry.Resolve(c.Request.Context(), id)
	if err != nil {
		log.Warnw("resolving", "did", id.String(), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"code": "RESOLUTION_FAILED"})
		return
	}
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "DID_DOCUMENT_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func whoami(c *gin.Context) {
	res, _ := didgin.Result(c)
	c.JSON(http.StatusOK, gin.H{
		"signer_did": res.SignerDID,
		"key_id":     res.KeyID,
		"operation":  res.Object.SignedData.Operation,
	})
}
