package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"yanfarm/services"
	"yanfarm/storage"
	"yanfarm/utils"
)

// WriteServiceError maps an error from the services layer to a response.
// Business errors keep their message; storage failures were already logged
// by the service and surface as a generic 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	var cooldown *services.CooldownError
	switch {
	case errors.As(err, &cooldown):
		utils.WriteError(w, http.StatusBadRequest,
			"Work account "+cooldown.AccountName+" is on cooldown, available again in "+strconv.Itoa(cooldown.HoursLeft)+" hour(s)")
	case errors.Is(err, services.ErrStorage):
		utils.WriteError(w, http.StatusInternalServerError, "Something went wrong, please try again")
	case errors.Is(err, services.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrHasDependents):
		utils.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, storage.ErrBadImage):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		if isBusiness(err) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Something went wrong, please try again")
	}
}

func isBusiness(err error) bool {
	for _, target := range []error{
		services.ErrValidation,
		services.ErrAccountIneligible,
		services.ErrAlreadyClaimed,
		services.ErrNoSlots,
		services.ErrInsufficientBalance,
		services.ErrBelowMinimumWithdrawal,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// PathID reads a positive numeric {id} route variable. It writes a 400 and
// returns false when the value is not usable.
func PathID(w http.ResponseWriter, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// CurrentUser returns the authenticated user id or writes a 401.
func CurrentUser(w http.ResponseWriter, r *http.Request) (uint, bool) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return uid, ok
}
