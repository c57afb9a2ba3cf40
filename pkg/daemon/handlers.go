package daemon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlie0129/wle/pkg/config"
	"github.com/charlie0129/wle/pkg/level"
	"github.com/charlie0129/wle/pkg/utils/ptr"
	"github.com/charlie0129/wle/pkg/version"
)

// requestTimeout bounds how long a calibration write waits for the loop,
// which may be stalled reconnecting to the telemetry broker.
var requestTimeout = 5 * time.Second

const redacted = "<redacted>"


func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(d.log))
	router.GET("/", d.getPage)
	router.GET("/min", d.getMin)
	router.PUT("/min", d.setMin)
	router.GET("/max", d.getMax)
	router.PUT("/max", d.setMax)
	router.GET("/status", d.getStatus)
	router.GET("/config", d.getConfig)
	router.GET("/version", getVersion)
	router.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	return router
}

func (d *Daemon) getPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", d.page.Bytes())
}

func (d *Daemon) getMin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"minValue": strconv.Itoa(d.loop.Snapshot().MinValue)})
}

func (d *Daemon) getMax(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"maxValue": strconv.Itoa(d.loop.Snapshot().MaxValue)})
}

func (d *Daemon) setMin(c *gin.Context) {
	d.setBound(c, "minValue", d.loop.SetMin, func(b level.Bounds) int { return b.Min })
}

func (d *Daemon) setMax(c *gin.Context) {
	d.setBound(c, "maxValue", d.loop.SetMax, func(b level.Bounds) int { return b.Max })
}

func (d *Daemon) setBound(
	c *gin.Context,
	key string,
	set func(context.Context, int) (level.Bounds, error),
	pick func(level.Bounds) int,
) {
	raw, ok := formValue(c)
	if !ok {
		// Without a value the write is a no-op that reports the current bound.
		s := d.loop.Snapshot()
		c.JSON(http.StatusOK, gin.H{key: strconv.Itoa(pick(level.Bounds{Min: s.MinValue, Max: s.MaxValue}))})
		return
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		err = fmt.Errorf("value must be an integer, got %q", raw)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if v < 0 || v > math.MaxUint16 {
		err = fmt.Errorf("value must be between 0 and %d, got %d", math.MaxUint16, v)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	b, err := set(ctx, v)
	if errors.Is(err, ErrBusy) {
		c.IndentedJSON(http.StatusServiceUnavailable, err.Error())
		_ = c.AbortWithError(http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{key: strconv.Itoa(pick(b))})
}

// formValue returns the value argument from the form body or the query.
func formValue(c *gin.Context) (string, bool) {
	v, ok := c.GetPostForm("value")
	if !ok || v == "" {
		v, ok = c.GetQuery("value")
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (d *Daemon) getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.loop.Snapshot())
}

func (d *Daemon) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(d.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if ptr.Deref(fc.Telemetry.Password, "") != "" {
		fc.Telemetry.Password = ptr.To(redacted)
	}
	c.YAML(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
