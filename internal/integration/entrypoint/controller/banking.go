package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/usecase/connection"
	domainerror "github.com/Staysteady/financial-dashboard-sub000/internal/domain/error"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/entrypoint/dto"
	"github.com/Staysteady/financial-dashboard-sub000/internal/integration/entrypoint/middleware"
)

// BankingController handles bank connection and synchronization endpoints.
type BankingController struct {
	listBanksUseCase  *connection.ListBanksUseCase
	initiateUseCase   *connection.InitiateConnectionUseCase
	completeUseCase   *connection.CompleteConnectionUseCase
	statusesUseCase   *connection.GetConnectionStatusesUseCase
	syncBankUseCase   *connection.SyncBankDataUseCase
	syncAllUseCase    *connection.SyncAllBanksUseCase
	disconnectUseCase *connection.DisconnectBankUseCase
	importCSVUseCase  *connection.ImportCSVUseCase
}

// NewBankingController creates a new banking controller instance.
func NewBankingController(
	listBanksUseCase *connection.ListBanksUseCase,
	initiateUseCase *connection.InitiateConnectionUseCase,
	completeUseCase *connection.CompleteConnectionUseCase,
	statusesUseCase *connection.GetConnectionStatusesUseCase,
	syncBankUseCase *connection.SyncBankDataUseCase,
	syncAllUseCase *connection.SyncAllBanksUseCase,
	disconnectUseCase *connection.DisconnectBankUseCase,
	importCSVUseCase *connection.ImportCSVUseCase,
) *BankingController {
	return &BankingController{
		listBanksUseCase:  listBanksUseCase,
		initiateUseCase:   initiateUseCase,
		completeUseCase:   completeUseCase,
		statusesUseCase:   statusesUseCase,
		syncBankUseCase:   syncBankUseCase,
		syncAllUseCase:    syncAllUseCase,
		disconnectUseCase: disconnectUseCase,
		importCSVUseCase:  importCSVUseCase,
	}
}

// ListBanks handles GET /banks requests.
func (c *BankingController) ListBanks(ctx *gin.Context) {
	output := c.listBanksUseCase.Execute()
	ctx.JSON(http.StatusOK, dto.ToListBanksResponse(output))
}

// InitiateConnection handles POST /connections/:bankCode requests.
func (c *BankingController) InitiateConnection(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return
	}

	output, err := c.initiateUseCase.Execute(ctx.Request.Context(), connection.InitiateConnectionInput{
		UserID:   userID,
		BankCode: ctx.Param("bankCode"),
	})
	if err != nil {
		c.handleBankingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.InitiateConnectionResponse{
		BankCode:         output.BankCode,
		AuthorizationURL: output.AuthorizationURL,
		State:            output.State,
	})
}

// CompleteConnection handles POST /connections/:bankCode/callback requests.
func (c *BankingController) CompleteConnection(ctx *gin.Context) {
	var req dto.CompleteConnectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
		})
		return
	}

	output, err := c.completeUseCase.Execute(ctx.Request.Context(), connection.CompleteConnectionInput{
		BankCode: ctx.Param("bankCode"),
		Code:     req.Code,
		State:    req.State,
	})
	if err != nil {
		c.handleBankingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.CompleteConnectionResponse{
		BankCode: output.BankCode,
		BankName: output.BankName,
		Status:   string(output.Status),
	})
}

// ListConnections handles GET /connections requests.
func (c *BankingController) ListConnections(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return
	}

	output, err := c.statusesUseCase.Execute(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Failed to retrieve connections",
		})
		return
	}

	ctx.JSON(http.StatusOK, dto.ToListConnectionsResponse(output))
}

// SyncBank handles POST /connections/:bankCode/sync requests.
func (c *BankingController) SyncBank(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return
	}

	output, err := c.syncBankUseCase.Execute(ctx.Request.Context(), connection.SyncBankDataInput{
		UserID:   userID,
		BankCode: ctx.Param("bankCode"),
	})
	if err != nil {
		c.handleBankingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToSyncResponse(output))
}

// SyncAll handles POST /connections/sync requests.
func (c *BankingController) SyncAll(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return
	}

	output, err := c.syncAllUseCase.Execute(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Failed to synchronize connections",
		})
		return
	}

	ctx.JSON(http.StatusOK, dto.ToSyncAllResponse(output))
}

// Disconnect handles DELETE /connections/:bankCode requests.
func (c *BankingController) Disconnect(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return
	}

	output, err := c.disconnectUseCase.Execute(ctx.Request.Context(), connection.DisconnectBankInput{
		UserID:   userID,
		BankCode: ctx.Param("bankCode"),
	})
	if err != nil {
		c.handleBankingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.DisconnectResponse{
		BankCode:      output.BankCode,
		RemoteRevoked: output.RemoteRevoked,
	})
}

// ImportCSV handles POST /imports/csv requests.
func (c *BankingController) ImportCSV(ctx *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "User not authenticated",
			Code:  string(domainerror.ErrCodeMissingToken),
		})
		return
	}

	var req dto.ImportCSVRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body: " + err.Error(),
		})
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid account ID format",
		})
		return
	}

	output, err := c.importCSVUseCase.Execute(ctx.Request.Context(), connection.ImportCSVInput{
		UserID:    userID,
		AccountID: accountID,
		Content:   req.Content,
		Config:    dto.CSVConfigFromRequest(req),
	})
	if err != nil {
		c.handleBankingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.ToImportCSVResponse(output))
}

// handleBankingError maps domain errors to HTTP responses.
func (c *BankingController) handleBankingError(ctx *gin.Context, err error) {
	var bankingErr *domainerror.BankingError
	var csvErr *domainerror.CSVError

	switch {
	case errors.Is(err, domainerror.ErrBankNotSupported):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: "Bank is not supported",
			Code:  string(domainerror.ErrCodeBankNotSupported),
		})
	case errors.Is(err, domainerror.ErrCredentialsNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: "No connection exists for this bank",
			Code:  string(domainerror.ErrCodeMissingCredential),
		})
	case errors.Is(err, domainerror.ErrAccountNotFoundOrUnauthorized):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: "Account not found",
			Code:  string(domainerror.ErrCodeAccountNotFound),
		})
	case errors.Is(err, domainerror.ErrInvalidState):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid or expired authorization state",
			Code:  string(domainerror.ErrCodeInvalidState),
		})
	case errors.Is(err, domainerror.ErrTokenExpired):
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error: "Bank authorization expired, reconnect required",
			Code:  string(domainerror.ErrCodeTokenExpired),
		})
	case errors.Is(err, domainerror.ErrRateLimitExceeded):
		ctx.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error: "Bank rate limit exceeded, try again later",
			Code:  string(domainerror.ErrCodeRateLimitExceeded),
		})
	case errors.Is(err, domainerror.ErrRequestTimeout):
		ctx.JSON(http.StatusGatewayTimeout, dto.ErrorResponse{
			Error: "Bank request timed out",
			Code:  string(domainerror.ErrCodeTimeout),
		})
	case errors.As(err, &csvErr):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: csvErr.Message,
			Code:  string(csvErr.Code),
		})
	case errors.As(err, &bankingErr):
		ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error: bankingErr.Message,
			Code:  string(bankingErr.Code),
		})
	default:
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "Internal server error",
		})
	}
}
