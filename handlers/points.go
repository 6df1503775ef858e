package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/loyalty_backend/models"
)

func listPointsAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.PointsAccountFilter
		if !bindQuery(c, &filter) {
			return
		}
		page, err := models.ListPointsAccounts(c.Request.Context(), &filter)
		respond(c, http.StatusOK, page, err)
	}
}

func getPointsAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		account, err := models.GetPointsAccount(c.Request.Context(), id)
		respond(c, http.StatusOK, account, err)
	}
}

func openPointsAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPointsAccount
		if !bindJSON(c, &input) {
			return
		}
		account, err := models.OpenPointsAccount(c.Request.Context(), &input)
		respond(c, http.StatusCreated, account, err)
	}
}

func postPointsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.PostPointsInput
		if !bindJSON(c, &input) {
			return
		}
		entry, err := models.PostPoints(c.Request.Context(), id, &input)
		respond(c, http.StatusCreated, entry, err)
	}
}

func listLedgerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var filter models.LedgerFilter
		if !bindQuery(c, &filter) {
			return
		}
		page, err := models.ListPointsLedger(c.Request.Context(), id, &filter)
		respond(c, http.StatusOK, page, err)
	}
}

func listTransfersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var page models.PageInput
		if !bindQuery(c, &page) {
			return
		}
		transfers, err := models.GetPointsTransfers(c.Request.Context(), id, page)
		respond(c, http.StatusOK, transfers, err)
	}
}

func accountStatusHandler(change func(c *gin.Context, id int) (*models.PointsAccount, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		account, err := change(c, id)
		respond(c, http.StatusOK, account, err)
	}
}

func freezePointsAccountHandler() gin.HandlerFunc {
	return accountStatusHandler(func(c *gin.Context, id int) (*models.PointsAccount, error) {
		return models.FreezePointsAccount(c.Request.Context(), id)
	})
}

func unfreezePointsAccountHandler() gin.HandlerFunc {
	return accountStatusHandler(func(c *gin.Context, id int) (*models.PointsAccount, error) {
		return models.UnfreezePointsAccount(c.Request.Context(), id)
	})
}

func closePointsAccountHandler() gin.HandlerFunc {
	return accountStatusHandler(func(c *gin.Context, id int) (*models.PointsAccount, error) {
		return models.ClosePointsAccount(c.Request.Context(), id)
	})
}

func transferPointsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPointsTransfer
		if !bindJSON(c, &input) {
			return
		}
		transfer, err := models.TransferPoints(c.Request.Context(), &input)
		respond(c, http.StatusCreated, transfer, err)
	}
}
