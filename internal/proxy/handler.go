package proxy

import (
	"bufio"
	"context"
	"net/http"
	"net/url"
	"strconv"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	authhandler "github.com/proxygate/proxygate/internal/auth/handler"
	"github.com/proxygate/proxygate/internal/auth/service"
	autherror "github.com/proxygate/proxygate/internal/errors"
)

type Handler struct {
	relay           *Relay
	gate            *service.AuthGate
	maxRequestBytes int64
}

func NewHandler(relay *Relay, gate *service.AuthGate, maxRequestBytes int64) *Handler {
	return &Handler{relay: relay, gate: gate, maxRequestBytes: maxRequestBytes}
}

func RegisterRoutes(app *fiber.App, h *Handler) {
	requireAuth := authhandler.RequireAuth(h.gate)

	// Order matters: the websocket and streaming prefixes must be mounted
	// before the catch-all.
	app.Use("/proxy/ws", upgradeRequired)
	app.Get("/proxy/ws/*", h.ProxyWebSocket())
	app.All("/proxy/stream/*", requireAuth, h.ProxyStream)
	app.All("/proxy/*", requireAuth, h.Proxy)
}

func upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *Handler) prepareRequest(c *fiber.Ctx) (Request, error) {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return Request{}, autherror.ErrBadTargetURL
	}

	target, err := ResolveTarget(c.Params("*"), query, "https", "http", "https")
	if err != nil {
		return Request{}, err
	}

	// The declared content length is an advisory limit; a missing or
	// malformed header is not an error.
	if contentLength := c.Get(fiber.HeaderContentLength); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil && size > h.maxRequestBytes {
			return Request{}, autherror.ErrBodyTooLarge
		}
	}

	header := make(http.Header)
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	return Request{
		Method:    c.Method(),
		TargetURL: target,
		Header:    header,
		Body:      c.Body(),
		UserID:    authhandler.CurrentUser(c).ID,
	}, nil
}

// Proxy forwards the request and returns the buffered origin response with
// its status, filtered headers, and body intact.
func (h *Handler) Proxy(c *fiber.Ctx) error {
	req, err := h.prepareRequest(c)
	if err != nil {
		return writeError(c, err)
	}

	resp, err := h.relay.Forward(c.UserContext(), req)
	if err != nil {
		return writeError(c, err)
	}

	writeResponseHeader(c, resp.Header)
	return c.Status(resp.StatusCode).Send(resp.Body)
}

// ProxyStream forwards the request but relays the origin body as a live
// byte stream instead of buffering it.
func (h *Handler) ProxyStream(c *fiber.Ctx) error {
	req, err := h.prepareRequest(c)
	if err != nil {
		return writeError(c, err)
	}

	stream, err := h.relay.OpenStream(context.Background(), req)
	if err != nil {
		return writeError(c, err)
	}

	writeResponseHeader(c, stream.Header)
	c.Status(stream.StatusCode)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		if err := stream.Relay(w); err != nil {
			logrus.WithError(err).Warn("streaming relay interrupted")
		}
	})

	return nil
}

// ProxyWebSocket upgrades the inbound connection unconditionally, then
// authorizes the token from the query parameters before any outbound
// connection is opened. Auth failures close with a policy-violation code
// and consume nothing beyond the inbound socket.
func (h *Handler) ProxyWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		user, err := h.gate.Authorize(context.Background(), conn.Query("token"))
		if err != nil {
			closeWith(conn, fws.ClosePolicyViolation, err.Error())
			return
		}

		query := url.Values{}
		if explicit := conn.Query("url"); explicit != "" {
			query.Set("url", explicit)
		}

		target, err := ResolveTarget(conn.Params("*"), query, "wss", "ws", "wss")
		if err != nil {
			closeWith(conn, fws.ClosePolicyViolation, err.Error())
			return
		}

		if err := h.relay.TunnelWebSocket(conn, target, user.ID); err != nil {
			logrus.WithError(err).Warn("websocket tunnel failed")
			closeWith(conn, fws.CloseInternalServerErr, "proxy error")
		}
	})
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := fws.FormatCloseMessage(code, reason)
	_ = conn.WriteMessage(fws.CloseMessage, msg)
}

func writeResponseHeader(c *fiber.Ctx, header http.Header) {
	for key, vals := range header {
		for _, val := range vals {
			c.Response().Header.Add(key, val)
		}
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status := authhandler.StatusForError(err)

	switch status {
	case fiber.StatusInternalServerError:
		logrus.WithError(err).Error("proxy failure")
		return c.Status(status).SendString("proxy error")
	case fiber.StatusGatewayTimeout:
		return c.Status(status).SendString(autherror.ErrUpstreamTimeout.Error())
	case fiber.StatusBadGateway:
		return c.Status(status).SendString(autherror.ErrUpstreamConnect.Error())
	default:
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
}
