package courseController

import (
	"errors"
	"log"

	"campus/database"
	"campus/middleware"
	"campus/services"
	"campus/utils"

	"github.com/gofiber/fiber/v2"
)

// GetMyCertificates lists the learner's certificates
func GetMyCertificates(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	certs, err := services.CertificatesOf(database.Database.Db, userID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", certs)
}

// DownloadCertificate streams the certificate PDF, rendering and caching it
// on first download. A render failure leaves the certificate record intact
// and is retried on the next request.
func DownloadCertificate(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	certificateNumber := c.Params("number")

	cert, err := services.GetCertificateForUser(database.Database.Db, userID, certificateNumber)
	if errors.Is(err, services.ErrNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found!", nil)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificate!", nil)
	}

	var learnerName string
	database.Database.Db.Table("users").Select("name").Where("id = ?", cert.UserID).Scan(&learnerName)

	path, err := utils.RenderCertificatePDF(cert, learnerName, cert.Course.Title, cert.Course.Author)
	if err != nil {
		log.Printf("[CERTIFICATE] Render failed for %s: %v", cert.CertificateNumber, err)
		return middleware.JsonResponse(c, fiber.StatusServiceUnavailable, false, "Certificate rendering failed, please retry.", nil)
	}

	if cert.PdfPath != path {
		if err := database.Database.Db.Model(cert).Update("pdf_path", path).Error; err != nil {
			log.Printf("[CERTIFICATE] Failed to cache pdf path for %s: %v", cert.CertificateNumber, err)
		}
	}

	c.Set("Content-Disposition", `attachment; filename="certificate_`+cert.CertificateNumber+`.pdf"`)
	return c.SendFile(path)
}

// VerifyCertificate is the public, unauthenticated verification endpoint. An
// unknown id gets a NotFound outcome, never an error that leaks internals.
func VerifyCertificate(c *fiber.Ctx) error {
	certificateNumber := c.Params("number")

	verification, err := services.VerifyCertificate(database.Database.Db, certificateNumber)
	if errors.Is(err, services.ErrValidation) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid certificate number!", nil)
	}
	if errors.Is(err, services.ErrNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate not found.", verification)
	}
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Verification failed, please retry.", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate verified.", verification)
}
