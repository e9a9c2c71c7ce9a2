package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-records/core/course"
	"github.com/trezcool/masomo-records/core/student"
)

var errCourseNotFoundInCtx = errors.New("course object not found in echo.Context")

type (
	courseApi struct {
		svc      *course.Service
		validate *validator.Validate
	}

	// CourseDetail is a course along with its enrolled students, in enrollment order.
	CourseDetail struct {
		course.Course
		Students []student.Student `json:"students"`
	}
)

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *course.Service,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create)

	// detail endpoints
	dg := cg.Group("/:id", courseMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/summary", api.summarize)
	dg.POST("/students/:student_id", api.enroll)
	dg.DELETE("/students/:student_id", api.unenroll)
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	upload, closeUpload, err := bindUpload(ctx)
	if err != nil {
		return err
	}
	defer closeUpload()

	res, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject, upload)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	students, err := api.svc.EnrolledStudents(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled students")
	}
	return ctx.JSON(http.StatusOK, CourseDetail{Course: c, Students: students})
}

func (api *courseApi) update(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	upload, closeUpload, err := bindUpload(ctx)
	if err != nil {
		return err
	}
	defer closeUpload()

	res, err := api.svc.Update(ctx.Request().Context(), c.ID, data, claims.Subject, upload)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	res, err := api.svc.Delete(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if len(res.Warnings) > 0 {
		return ctx.JSON(http.StatusOK, res)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) summarize(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	res, err := api.svc.RegenerateSummary(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "regenerating summary")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), c.ID, ctx.Param("student_id"))
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	c, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Unenroll(ctx.Request().Context(), c.ID, ctx.Param("student_id")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// courseMiddleware loads the course identified by the `id` path param into the context.
func courseMiddleware(svc *course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding course by ID")
			}
			ctx.Set("object", c)
			return next(ctx)
		}
	}
}
