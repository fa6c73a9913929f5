package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/psds-microservice/consultation-service/internal/middleware"
	"github.com/psds-microservice/consultation-service/internal/session"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

var _ = Describe("Session middleware", func() {
	var (
		router *gin.Engine
		seen   session.Session
	)

	newRouter := func(secret string, extra ...gin.HandlerFunc) {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(middleware.Logging(logger.NewNop()), middleware.Session(secret))
		handlers := append(extra, func(c *gin.Context) {
			seen = middleware.SessionFrom(c)
			c.Status(http.StatusNoContent)
		})
		router.GET("/whoami", handlers...)
	}

	BeforeEach(func() {
		seen = session.Session{}
	})

	It("reads caller headers when no JWT secret is configured", func() {
		newRouter("")
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(middleware.HeaderCallerID, "vet-3")
		req.Header.Set(middleware.HeaderCallerRole, "vet")
		req.Header.Set(middleware.HeaderVetMode, "true")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(seen).To(Equal(session.Session{UserID: "vet-3", Role: session.RoleVet, VetMode: true}))
		Expect(w.Header().Get(middleware.CorrelationIDHeader)).NotTo(BeEmpty())
	})

	It("keeps an incoming correlation id", func() {
		newRouter("")
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(middleware.CorrelationIDHeader, "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Header().Get(middleware.CorrelationIDHeader)).To(Equal("abc-123"))
	})

	Context("with a JWT secret", func() {
		const secret = "s3cret"

		It("ignores caller headers and trusts the token", func() {
			newRouter(secret)
			token, err := session.SignToken(secret, session.Session{UserID: "admin-1", Role: session.RoleAdmin}, time.Hour)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set(middleware.HeaderCallerID, "spoofed")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(seen.UserID).To(Equal("admin-1"))
			Expect(seen.IsAdmin()).To(BeTrue())
		})

		It("rejects invalid tokens", func() {
			newRouter(secret)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer nope")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects malformed authorization headers", func() {
			newRouter(secret)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	It("RequireSession rejects anonymous callers", func() {
		newRouter("", middleware.RequireSession())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("RequireAdmin rejects non-admins", func() {
		newRouter("", middleware.RequireAdmin())
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(middleware.HeaderCallerID, "m1")
		req.Header.Set(middleware.HeaderCallerRole, "moderator")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})
})
