// defaults.go: viper default values for all recognized settings.
package conf

import "github.com/spf13/viper"

// setDefaults registers the default value for every configuration key.
func setDefaults() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "screener")
	viper.SetDefault("main.logfile", "")

	// Capture streams
	viper.SetDefault("realtime.video.width", 1920)
	viper.SetDefault("realtime.video.height", 1080)
	viper.SetDefault("realtime.video.fps", 59.94)
	viper.SetDefault("realtime.video.bufferseconds", 60)
	viper.SetDefault("realtime.video.golfersource", "golfer")
	viper.SetDefault("realtime.video.simulatorsource", "simulator")

	// Motion detector
	viper.SetDefault("realtime.detector.analysiswidth", 64)
	viper.SetDefault("realtime.detector.analysisheight", 36)
	viper.SetDefault("realtime.detector.frameskip", 2)
	viper.SetDefault("realtime.detector.comparisongap", 2)
	viper.SetDefault("realtime.detector.smoothingalpha", 0.1)
	viper.SetDefault("realtime.detector.spikemultiplier", 4.0)
	viper.SetDefault("realtime.detector.minspikefloor", 8000)
	viper.SetDefault("realtime.detector.roi.left", 0.25)
	viper.SetDefault("realtime.detector.roi.top", 0.2)
	viper.SetDefault("realtime.detector.roi.width", 0.5)
	viper.SetDefault("realtime.detector.roi.height", 0.6)
	viper.SetDefault("realtime.detector.idlesimilaritythreshold", 3000)
	viper.SetDefault("realtime.detector.consecutiveidleframes", 15)

	// Auto-cut timing policy
	viper.SetDefault("realtime.autocut.enabled", true)
	viper.SetDefault("realtime.autocut.maxsimulatordurationseconds", 30.0)
	viper.SetDefault("realtime.autocut.postlandingdelayseconds", 1.5)
	viper.SetDefault("realtime.autocut.cooldowndurationseconds", 2.0)
	viper.SetDefault("realtime.autocut.practiceswingtimeoutseconds", 3.0)

	// Transition engine
	viper.SetDefault("realtime.transition.durationms", 500.0)
	viper.SetDefault("realtime.transition.workers", 0)

	// Clip export
	viper.SetDefault("realtime.export.enabled", false)
	viper.SetDefault("realtime.export.path", "clips/")
	viper.SetDefault("realtime.export.prerollseconds", 3.0)
	viper.SetDefault("realtime.export.postrollseconds", 1.0)

	// MQTT event publishing
	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topicprefix", "screener")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")

	// Telemetry
	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "0.0.0.0:8090")
	viper.SetDefault("realtime.telemetry.sentrydsn", "")
	viper.SetDefault("realtime.telemetry.sentryoptin", false)

	// Control API
	viper.SetDefault("realtime.http.enabled", true)
	viper.SetDefault("realtime.http.listen", "0.0.0.0:8080")

	// Datastore
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "screener.db")
}
