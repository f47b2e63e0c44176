package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"assetledger/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按错误分类映射 HTTP 状态码
// 400 输入不合法 / 409 前置条件不满足 / 422 不变量被破坏 / 404 不存在
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var pe *domain.PreconditionError
	var ie *domain.InvariantError
	var ne *domain.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.As(err, &pe):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case errors.As(err, &ie):
		writeJSON(w, http.StatusUnprocessableEntity, Fail(err.Error()))
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// actorFrom 从请求头取已解析的操作者身份（认证在上游网关完成）
func actorFrom(r *http.Request) domain.Actor {
	return domain.Actor{
		ID:   r.Header.Get("X-Actor-Id"),
		Name: r.Header.Get("X-Actor-Name"),
		Role: domain.Role(r.Header.Get("X-Actor-Role")),
	}
}

func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor := actorFrom(r)
	if actor.ID == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("X-Actor-Id header is required"))
		return actor, false
	}
	return actor, true
}
