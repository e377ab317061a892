package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

// maxBackupUpload bounds an imported backup file.
const maxBackupUpload = 64 << 20

type createBackupRequest struct {
	Label string `json:"label"`
}

func createBackupHandler(c *gin.Context) {
	var input createBackupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	backup, err := workflow.CreateBackup(c.Request.Context(), bankIdOf(c), input.Label)
	if err != nil {
		renderError(c, "createBackupHandler", err)
		return
	}
	backup.Data = nil
	c.JSON(http.StatusCreated, backup)
}

func getBackupsHandler(c *gin.Context) {
	backups, err := models.GetBackups(c.Request.Context(), bankIdOf(c))
	if err != nil {
		renderError(c, "getBackupsHandler", err)
		return
	}
	c.JSON(http.StatusOK, backups)
}

func downloadBackupHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	db := config.GetDB().WithContext(c.Request.Context())
	backup, err := models.FindBackup(db, bankIdOf(c), id)
	if err != nil {
		renderError(c, "downloadBackupHandler", err)
		return
	}
	filename := fmt.Sprintf("backup-%s-%d.json", backup.CreatedAt.UTC().Format("20060102-150405"), backup.ID)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json", backup.Data)
}

// importBackupHandler accepts a multipart "file" field or a raw JSON body.
func importBackupHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBackupUpload)

	var (
		data  []byte
		err   error
		label = c.Query("label")
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, ferr := c.FormFile("file")
		if ferr != nil {
			badRequest(c, "file is required")
			return
		}
		file, ferr := fileHeader.Open()
		if ferr != nil {
			badRequest(c, ferr.Error())
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		if label == "" {
			label = c.PostForm("label")
		}
		if label == "" {
			label = "Imported " + fileHeader.Filename
		}
	} else {
		data, err = io.ReadAll(c.Request.Body)
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	backup, err := workflow.ImportBackup(c.Request.Context(), bankIdOf(c), label, data)
	if err != nil {
		renderError(c, "importBackupHandler", err)
		return
	}
	backup.Data = nil
	c.JSON(http.StatusCreated, backup)
}

func deleteBackupHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := workflow.DeleteBackup(c.Request.Context(), bankIdOf(c), id); err != nil {
		renderError(c, "deleteBackupHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func restoreBackupHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	summary, err := workflow.RestoreBackup(c.Request.Context(), bankIdOf(c), id)
	if err != nil {
		renderError(c, "restoreBackupHandler", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func resetAllHandler(c *gin.Context) {
	if err := workflow.ResetAll(c.Request.Context(), bankIdOf(c)); err != nil {
		renderError(c, "resetAllHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}
