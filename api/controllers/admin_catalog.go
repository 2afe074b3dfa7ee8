package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type replaceImagesRequest struct {
	Images []catalog.ImageInput `json:"images"`
}

func adminCatalogUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "catalog admin unavailable")
}

func writeResult(w http.ResponseWriter, r *http.Request, logg *logger.Logger, status int, data any, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	responses.WriteSuccessStatus(w, status, data)
}

// withID resolves a uuid path parameter before calling fn.
func withID(logg *logger.Logger, param string, fn func(w http.ResponseWriter, r *http.Request, id uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(w, r, id)
	}
}

// decodeInto decodes the body, writing the error response on failure. The admin
// service owns validation of catalog inputs.
func decodeInto(w http.ResponseWriter, r *http.Request, logg *logger.Logger, dest any) bool {
	if err := validators.DecodeJSON(r, dest); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return false
	}
	return true
}

func AdminListProducts(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, adminCatalogUnavailable())
			return
		}
		input, err := parseProductList(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListProducts(r.Context(), input)
		writeResult(w, r, logg, http.StatusOK, result, err)
	}
}

func AdminGetProduct(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		product, err := svc.GetProduct(r.Context(), id)
		writeResult(w, r, logg, http.StatusOK, product, err)
	})
}

func AdminCreateProduct(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalog.ProductInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		product, err := svc.CreateProduct(r.Context(), payload)
		writeResult(w, r, logg, http.StatusCreated, product, err)
	}
}

func AdminUpdateProduct(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var payload catalog.ProductInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, payload)
		writeResult(w, r, logg, http.StatusOK, product, err)
	})
}

func AdminDeleteProduct(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		writeResult(w, r, logg, http.StatusNoContent, nil, svc.DeleteProduct(r.Context(), id))
	})
}

// AdminReplaceImages swaps the whole image list; order in the body becomes position.
func AdminReplaceImages(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var payload replaceImagesRequest
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		product, err := svc.ReplaceImages(r.Context(), id, payload.Images)
		writeResult(w, r, logg, http.StatusOK, product, err)
	})
}

func AdminCreateVariant(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "productId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var payload catalog.VariantInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		variant, err := svc.CreateVariant(r.Context(), id, payload)
		writeResult(w, r, logg, http.StatusCreated, variant, err)
	})
}

func AdminUpdateVariant(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "variantId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var payload catalog.VariantInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		variant, err := svc.UpdateVariant(r.Context(), id, payload)
		writeResult(w, r, logg, http.StatusOK, variant, err)
	})
}

func AdminDeleteVariant(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "variantId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		writeResult(w, r, logg, http.StatusNoContent, nil, svc.DeleteVariant(r.Context(), id))
	})
}

func AdminCreateCategory(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalog.CategoryInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		category, err := svc.CreateCategory(r.Context(), payload)
		writeResult(w, r, logg, http.StatusCreated, category, err)
	}
}

func AdminUpdateCategory(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "categoryId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var payload catalog.CategoryInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		category, err := svc.UpdateCategory(r.Context(), id, payload)
		writeResult(w, r, logg, http.StatusOK, category, err)
	})
}

func AdminDeleteCategory(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "categoryId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		writeResult(w, r, logg, http.StatusNoContent, nil, svc.DeleteCategory(r.Context(), id))
	})
}

func AdminCreateGroup(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalog.GroupInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		group, err := svc.CreateGroup(r.Context(), payload)
		writeResult(w, r, logg, http.StatusCreated, group, err)
	}
}

func AdminUpdateGroup(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "groupId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var payload catalog.GroupInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		group, err := svc.UpdateGroup(r.Context(), id, payload)
		writeResult(w, r, logg, http.StatusOK, group, err)
	})
}

func AdminDeleteGroup(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "groupId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		writeResult(w, r, logg, http.StatusNoContent, nil, svc.DeleteGroup(r.Context(), id))
	})
}

// AdminListDeliveryZones includes inactive zones.
func AdminListDeliveryZones(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, adminCatalogUnavailable())
			return
		}
		zones, err := svc.ListDeliveryZones(r.Context(), false)
		writeResult(w, r, logg, http.StatusOK, zones, err)
	}
}

func AdminCreateDeliveryZone(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload catalog.DeliveryZoneInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		zone, err := svc.CreateDeliveryZone(r.Context(), payload)
		writeResult(w, r, logg, http.StatusCreated, zone, err)
	}
}

func AdminUpdateDeliveryZone(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "zoneId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		var payload catalog.DeliveryZoneInput
		if !decodeInto(w, r, logg, &payload) {
			return
		}
		zone, err := svc.UpdateDeliveryZone(r.Context(), id, payload)
		writeResult(w, r, logg, http.StatusOK, zone, err)
	})
}

func AdminDeleteDeliveryZone(svc catalog.AdminService, logg *logger.Logger) http.HandlerFunc {
	return withID(logg, "zoneId", func(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
		writeResult(w, r, logg, http.StatusNoContent, nil, svc.DeleteDeliveryZone(r.Context(), id))
	})
}
