package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-attendance/core/attendance"
)

type attendanceAPI struct {
	svc      *attendance.Service
	sessions *SessionRegistry
	validate *validator.Validate
}

// CommitResponse is the result of a save along with the session it left behind.
type CommitResponse struct {
	attendance.CommitResult
	Session attendance.Snapshot `json:"session"`
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *attendanceAPI) {
	ag := g.Group("/attendance", jwt)

	ag.GET("/periods", api.periods)
	ag.GET("/summary", api.summary)
	ag.GET("/breakdown", api.breakdown)

	sg := ag.Group("/session")
	sg.GET("", api.snapshot)
	sg.DELETE("", api.discard)
	sg.PUT("/selection", api.selectKey)
	sg.POST("/reload", api.reload)
	sg.PUT("/students/:id", api.mark)
	sg.POST("/students/:id/cycle", api.cycle)
	sg.POST("/mark-all", api.markAll)
	sg.POST("/reset", api.reset)
	sg.POST("/commit", api.commit)
}

func (api *attendanceAPI) session(ctx echo.Context) (*attendance.Session, error) {
	op, err := getContextOperator(ctx)
	if err != nil {
		return nil, err
	}
	return api.sessions.Get(op), nil
}

func (api *attendanceAPI) bindMark(ctx echo.Context) (attendance.MarkRequest, error) {
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return data, newBadRequestError(err)
	}
	return data, data.Validate(api.validate)
}

// Session handlers

func (api *attendanceAPI) snapshot(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *attendanceAPI) discard(ctx echo.Context) error {
	op, err := getContextOperator(ctx)
	if err != nil {
		return err
	}
	api.sessions.Drop(op)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceAPI) selectKey(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	var key attendance.SelectionKey
	if err := ctx.Bind(&key); err != nil {
		return newBadRequestError(err)
	}
	if err := sess.Select(ctx.Request().Context(), key); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *attendanceAPI) reload(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	if err := sess.Reload(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *attendanceAPI) cycle(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	if _, err := sess.Cycle(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *attendanceAPI) mark(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	data, err := api.bindMark(ctx)
	if err != nil {
		return err
	}
	if err := sess.Set(ctx.Param("id"), data.Status); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *attendanceAPI) markAll(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	data, err := api.bindMark(ctx)
	if err != nil {
		return err
	}
	if err := sess.SetAll(data.Status); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *attendanceAPI) reset(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	sess.Reset()
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *attendanceAPI) commit(ctx echo.Context) error {
	sess, err := api.session(ctx)
	if err != nil {
		return err
	}
	res, err := sess.Commit(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CommitResponse{CommitResult: res, Session: sess.Snapshot()})
}

// History handlers

func classFromQuery(ctx echo.Context) attendance.ClassRef {
	return attendance.ClassRef{
		ClassName: ctx.QueryParam("class_name"),
		Section:   ctx.QueryParam("section"),
	}
}

func (api *attendanceAPI) periods(ctx echo.Context) error {
	defs, err := api.svc.PeriodDefinitions(ctx.Request().Context(), classFromQuery(ctx))
	if err != nil {
		return errors.Wrap(err, "querying period definitions")
	}
	return ctx.JSON(http.StatusOK, defs)
}

func (api *attendanceAPI) summary(ctx echo.Context) error {
	summaries, err := api.svc.SubjectPeriodSummary(ctx.Request().Context(), classFromQuery(ctx))
	if err != nil {
		return errors.Wrap(err, "querying subject period summary")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *attendanceAPI) breakdown(ctx echo.Context) error {
	q := attendance.PeriodRecordQuery{
		ClassRef: classFromQuery(ctx),
		From:     ctx.QueryParam("from"),
		To:       ctx.QueryParam("to"),
	}
	bd, err := api.svc.Breakdown(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "querying breakdown")
	}
	return ctx.JSON(http.StatusOK, bd)
}
