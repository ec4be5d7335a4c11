package restapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sharedcode/shardvault"
)

// FileAPI holds the collaborators of the file endpoints.
type FileAPI struct {
	vault    *shardvault.Vault
	resolver shardvault.TokenResolver
}

// NewFileAPI wires the file endpoints against a Vault and a token resolver.
func NewFileAPI(vault *shardvault.Vault, resolver shardvault.TokenResolver) (*FileAPI, error) {
	if vault == nil {
		return nil, fmt.Errorf("vault parameter can't be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver parameter can't be nil")
	}
	return &FileAPI{
		vault:    vault,
		resolver: resolver,
	}, nil
}

// RegisterFileMethods registers the file REST methods on the global registry.
func (a *FileAPI) RegisterFileMethods() error {
	if err := RegisterMethod(POST, "/file", a.uploadFile); err != nil {
		return err
	}
	if err := RegisterMethod(GET, "/file", a.retrieveFile); err != nil {
		return err
	}
	if err := RegisterMethod(GET, "/file/list", a.listFiles); err != nil {
		return err
	}
	return RegisterMethod(DELETE, "/file", a.deleteFile)
}

// ownerFrom authenticates the request, writing the failure response itself when
// the bearer token is missing or invalid.
func (a *FileAPI) ownerFrom(c *gin.Context) (int64, bool) {
	token := c.Request.Header.Get("Authorization")
	if !strings.HasPrefix(token, "Bearer ") {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	token = strings.TrimPrefix(token, "Bearer ")
	ownerID, err := a.resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return ownerID, true
}

func (a *FileAPI) uploadFile(c *gin.Context) {
	ownerID, ok := a.ownerFrom(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "form field 'file' is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()
	payload, err := io.ReadAll(f)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}

	if err := a.vault.Upload(c.Request.Context(), ownerID, fileHeader.Filename, payload); err != nil {
		if shardvault.CodeOf(err) == shardvault.AlreadyExists {
			c.String(http.StatusBadRequest, "File already exists")
			return
		}
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.String(http.StatusOK, "File successfully encoded and stored")
}

func (a *FileAPI) retrieveFile(c *gin.Context) {
	ownerID, ok := a.ownerFrom(c)
	if !ok {
		return
	}
	filename := c.Query("filename")
	ba, err := a.vault.Retrieve(c.Request.Context(), ownerID, filename)
	if err != nil {
		switch shardvault.CodeOf(err) {
		case shardvault.NotFound:
			c.String(http.StatusNotFound, "File not found or shards missing")
		case shardvault.Unrecoverable:
			c.String(http.StatusBadRequest, "Not enough shards to reconstruct the file")
		default:
			c.String(http.StatusInternalServerError, err.Error())
		}
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/octet-stream", ba)
}

func (a *FileAPI) listFiles(c *gin.Context) {
	ownerID, ok := a.ownerFrom(c)
	if !ok {
		return
	}
	summaries, err := a.vault.List(c.Request.Context(), ownerID)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (a *FileAPI) deleteFile(c *gin.Context) {
	ownerID, ok := a.ownerFrom(c)
	if !ok {
		return
	}
	filename := c.Query("filename")
	if err := a.vault.Delete(c.Request.Context(), ownerID, filename); err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.String(http.StatusOK, "File deleted successfully")
}
