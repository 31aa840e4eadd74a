package dashboard

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"walletscope/config"
	"walletscope/internal/chain"
	"walletscope/logger"
	"walletscope/models"
)

const (
	ctxUsername       = "username"
	noAddressProvided = "No address provided"
)

func (s *Server) loginPage(c *gin.Context) {
	if _, err := s.currentUser(c); err == nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.HTML(http.StatusOK, "login.tmpl", gin.H{"AppName": s.appName})
}

func (s *Server) login(c *gin.Context) {
	log := s.log.WithComponent("dashboard")
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) != 1 {
		log.WithFields(logger.Fields{"username": username}).Warn("rejected dashboard login")
		c.HTML(http.StatusUnauthorized, "login.tmpl", gin.H{"AppName": s.appName, "Error": "Incorrect password"})
		return
	}
	if username == "" {
		c.HTML(http.StatusBadRequest, "login.tmpl", gin.H{"AppName": s.appName, "Error": "Username is required"})
		return
	}

	if s.logins != nil {
		if err := s.logins.RecordLogin(c.Request.Context(), username); err != nil {
			log.WithError(err).WithFields(logger.Fields{"username": username}).Error("failed to record login")
		}
	}

	token, err := s.sessions.issue(username)
	if err != nil {
		log.WithError(err).Error("failed to issue session")
		c.String(http.StatusInternalServerError, "login failed")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(s.sessions.ttl.Seconds()), "/", "", s.cfg.SecureCookie, true)
	log.WithFields(logger.Fields{"username": username}).Info("dashboard login")
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", s.cfg.SecureCookie, true)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) currentUser(c *gin.Context) (string, error) {
	raw, err := c.Cookie(sessionCookie)
	if err != nil || raw == "" {
		return "", errInvalidSession
	}
	claims, err := s.sessions.verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

// requireSession rejects requests without a valid session: API routes
// get 401, pages are redirected to the login form.
func (s *Server) requireSession(api bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, err := s.currentUser(c)
		if err != nil {
			if api {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			} else {
				c.Redirect(http.StatusFound, "/")
				c.Abort()
			}
			return
		}
		c.Set(ctxUsername, username)
		c.Next()
	}
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"AppName":  s.appName,
		"Username": c.GetString(ctxUsername),
	})
}

func (s *Server) holdingsPage(ch chain.Chain) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := strings.TrimSpace(c.PostForm("address"))
		if address == "" {
			c.String(http.StatusBadRequest, noAddressProvided)
			return
		}

		data := gin.H{
			"AppName":  s.appName,
			"Username": c.GetString(ctxUsername),
			"Chain":    ch,
			"Symbol":   ch.NativeSymbol(),
			"Address":  address,
		}
		res, err := s.holdings.GetHoldings(c.Request.Context(), ch, address)
		if err != nil {
			status, msg := errorStatus(err)
			data["Error"] = msg
			c.HTML(status, "holdings.tmpl", data)
			return
		}
		data["Result"] = res
		data["TotalUSD"] = res.TotalUSD()
		c.HTML(http.StatusOK, "holdings.tmpl", data)
	}
}

func (s *Server) holdingsJSON(c *gin.Context) {
	ch, err := chain.Parse(c.Param("chain"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": noAddressProvided})
		return
	}

	res, err := s.holdings.GetHoldings(c.Request.Context(), ch, address)
	if err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chain":     res.Chain,
		"address":   res.Address,
		"native":    res.Native,
		"tokens":    res.Tokens,
		"total_usd": res.TotalUSD(),
	})
}

func (s *Server) loginsJSON(c *gin.Context) {
	if s.logins == nil {
		c.JSON(http.StatusOK, gin.H{"logins": []any{}})
		return
	}
	logins, err := s.logins.Logins(c.Request.Context())
	if err != nil {
		s.log.WithComponent("dashboard").WithError(err).Error("failed to list logins")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list logins"})
		return
	}
	if logins == nil {
		c.JSON(http.StatusOK, gin.H{"logins": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logins": logins})
}

// statusJSON reports warnings and errors logged per component since start.
func (s *Server) statusJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":        s.appName,
		"env":        config.AppEnvironment(),
		"log_counts": logger.Counts(),
	})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrInvalidAddress):
		return http.StatusBadRequest, "Invalid address"
	case errors.Is(err, models.ErrUnsupportedChain):
		return http.StatusNotFound, "Chain not supported"
	case errors.Is(err, models.ErrProviderUnavailable):
		return http.StatusBadGateway, "Balance provider unavailable, try again later"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

var templateFuncs = template.FuncMap{
	"usd": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
	"amount": func(v float64) string {
		s := fmt.Sprintf("%.6f", v)
		s = strings.TrimRight(s, "0")
		return strings.TrimSuffix(s, ".")
	},
	"change": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%+.2f%%", *v)
	},
}
